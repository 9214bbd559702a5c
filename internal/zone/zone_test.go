package zone

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTableHasDefault(t *testing.T) {
	tbl := NewTable()

	z, err := tbl.Get(Default)
	if err != nil {
		t.Fatalf("Get(default) error = %v", err)
	}
	if z.Index != 0 {
		t.Errorf("default zone index = %d, want 0", z.Index)
	}
}

func TestAdd(t *testing.T) {
	tbl := NewTable()

	driver, err := tbl.Add("driver", "Front seats")
	if err != nil {
		t.Fatalf("Add(driver) error = %v", err)
	}
	if driver.Index != 1 {
		t.Errorf("driver index = %d, want 1", driver.Index)
	}
	if _, err := tbl.Add("rear_left", ""); err != nil {
		t.Fatalf("Add(rear_left) error = %v", err)
	}

	if _, err := tbl.Add("driver", ""); !errors.Is(err, ErrZoneExists) {
		t.Errorf("duplicate Add error = %v, want ErrZoneExists", err)
	}
	if _, err := tbl.Add("Driver Seat", ""); !errors.Is(err, ErrInvalidZone) {
		t.Errorf("invalid name error = %v, want ErrInvalidZone", err)
	}
	if _, err := tbl.Add("lounge", strings.Repeat("x", maxDescriptionLength+1)); !errors.Is(err, ErrInvalidZone) {
		t.Errorf("long description error = %v, want ErrInvalidZone", err)
	}

	names := []string{}
	for _, z := range tbl.List() {
		names = append(names, z.Name)
	}
	if strings.Join(names, ",") != "default,driver,rear_left" {
		t.Errorf("List() = %v", names)
	}
	if !tbl.Has("rear_left") || tbl.Has("lounge") {
		t.Error("Has() disagrees with Add()")
	}
	if _, err := tbl.Get("lounge"); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("Get(lounge) error = %v, want ErrZoneNotFound", err)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"driver", false},
		{"rear-left", false},
		{"zone_2", false},
		{"", true},
		{"Kitchen", true},
		{"-lead", true},
		{"double--dash", true},
		{strings.Repeat("a", maxNameLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
