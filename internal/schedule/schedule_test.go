package schedule

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMarshalItemsEmpty(t *testing.T) {
	if got := MarshalItems(nil); got != "[]" {
		t.Errorf("MarshalItems(nil) = %q, want []", got)
	}
	if got := MarshalItems([]Item{}); got != "[]" {
		t.Errorf("MarshalItems(empty) = %q, want []", got)
	}
}

func TestMarshalItemsRoundTrip(t *testing.T) {
	items := []Item{{
		EquipmentCode:        "EQ-1001",
		EquipmentName:        "Gas Turbine",
		P6DueDate:            "2026-10-01",
		DeliveryDate:         "2026-10-15",
		ManufacturingCountry: "Germany",
		ProjectCountry:       "Australia",
		DaysVariance:         14,
		DaysUntilDue:         38,
		RiskPercentage:       36.84,
		RiskLevel:            "High Risk",
	}}
	out := MarshalItems(items)
	if !strings.Contains(out, `"equipment_code":"EQ-1001"`) {
		t.Errorf("missing equipment code in %s", out)
	}
	var back []Item
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 1 || back[0].RiskLevel != "High Risk" {
		t.Errorf("round trip lost data: %+v", back)
	}
}
