package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"omip-benchmark/internal/model"
)

// settingsFileWrapper is the on-disk shape of a settings seed file:
//
//	settings:
//	  losses_percent: 2.5
//	  eric_per_mwh: 3
//	  ren_per_mwh: 1.5
//	  networks:
//	    mt_per_mwh: 12
//	    bte_per_mwh: 18
//	    btn_per_mwh: 35
//	  note: tariffs for 2026
type settingsFileWrapper struct {
	Settings struct {
		model.Adjustments `yaml:",inline"`

		Networks model.NetworkCosts `yaml:"networks"`
		Note     string             `yaml:"note"`
	} `yaml:"settings"`
}

// LoadSettingsFile reads and validates a settings seed file.
func LoadSettingsFile(path string) (*model.AdjustmentSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w settingsFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s := &model.AdjustmentSettings{
		Adjustments: w.Settings.Adjustments,
		Networks:    w.Settings.Networks,
		Note:        w.Settings.Note,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings file %s invalid: %w", path, err)
	}
	return s, nil
}

// MergeAdjustments overlays the non-zero fields of override onto base.
// Zero is a legal adjustment value, so callers that need to set a field to
// zero must build the struct directly.
func MergeAdjustments(base, override model.Adjustments) model.Adjustments {
	out := base
	if override.LossesPercent != 0 {
		out.LossesPercent = override.LossesPercent
	}
	if override.EricPerMWh != 0 {
		out.EricPerMWh = override.EricPerMWh
	}
	if override.RenPerMWh != 0 {
		out.RenPerMWh = override.RenPerMWh
	}
	return out
}
