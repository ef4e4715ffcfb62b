package settings

import (
	"context"
	"testing"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/store/memory"
)

var fallback = model.Adjustments{LossesPercent: 7, EricPerMWh: 3, RenPerMWh: 1.5}

func TestCurrentFallsBack(t *testing.T) {
	svc := NewService(memory.New(), fallback, nil)
	cur, err := svc.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cur.Source != "fallback" || cur.Settings != nil || cur.Adjustments() != fallback {
		t.Fatalf("current = %+v", cur)
	}
}

func TestCreateActivateList(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), fallback, nil)

	v1, err := svc.Create(ctx, &model.AdjustmentSettings{Adjustments: model.Adjustments{LossesPercent: 2.5, EricPerMWh: 3, RenPerMWh: 1.5}}, true)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := svc.Create(ctx, &model.AdjustmentSettings{Note: "zero terms"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if v1.Version != 1 || v2.Version != 2 {
		t.Fatalf("versions = %d, %d", v1.Version, v2.Version)
	}

	cur, _ := svc.Current(ctx)
	if cur.Source != "version" || cur.Settings.Version != 1 {
		t.Fatalf("current = %+v", cur)
	}

	got, err := svc.Activate(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Note != "zero terms" {
		t.Fatalf("activated = %+v", got)
	}
	cur, _ = svc.Current(ctx)
	if cur.Adjustments() != (model.Adjustments{}) {
		t.Fatalf("stored zeros must be honored, got %+v", cur.Adjustments())
	}

	list, err := svc.List(ctx, 0)
	if err != nil || len(list) != 2 || list[0].Version != 2 {
		t.Fatalf("list = %+v, err = %v", list, err)
	}
}

func TestCreateAndActivateErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), fallback, nil)

	_, err := svc.Create(ctx, &model.AdjustmentSettings{Adjustments: model.Adjustments{LossesPercent: 150}}, false)
	if !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("losses > 100: err = %v", err)
	}
	_, err = svc.Create(ctx, &model.AdjustmentSettings{Networks: model.NetworkCosts{BTNPerMWh: -1}}, false)
	if !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("negative network: err = %v", err)
	}
	if _, err := svc.Activate(ctx, 9); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown version: err = %v", err)
	}
	if _, err := svc.Activate(ctx, 0); !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("zero version: err = %v", err)
	}
}
