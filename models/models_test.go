package models

import (
	"strings"
	"testing"
)

func validCreateRequest() CreateReportRequest {
	return CreateReportRequest{
		Type:        HazardPothole,
		Description: "Deep pothole on the main road near the bus stop",
		Location:    Location{Lat: 40.7128, Lng: -74.006, Address: "Main St"},
	}
}

func TestCreateReportRequestValidate(t *testing.T) {
	req := validCreateRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestCreateReportRequestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateReportRequest)
	}{
		{"unknown type", func(r *CreateReportRequest) { r.Type = HazardUnknown }},
		{"empty type", func(r *CreateReportRequest) { r.Type = "" }},
		{"short description", func(r *CreateReportRequest) { r.Description = "too short" }},
		{"whitespace-padded short description", func(r *CreateReportRequest) {
			r.Description = "   short    "
		}},
		{"long description", func(r *CreateReportRequest) {
			r.Description = strings.Repeat("x", DescriptionMaxLen+1)
		}},
		{"latitude out of range", func(r *CreateReportRequest) { r.Location.Lat = 91 }},
		{"longitude out of range", func(r *CreateReportRequest) { r.Location.Lng = -181 }},
		{"missing address", func(r *CreateReportRequest) { r.Location.Address = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			if err := req.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateReportRequestValidateBoundaryLengths(t *testing.T) {
	req := validCreateRequest()

	req.Description = strings.Repeat("x", DescriptionMinLen)
	if err := req.Validate(); err != nil {
		t.Errorf("min-length description rejected: %v", err)
	}

	req.Description = strings.Repeat("x", DescriptionMaxLen)
	if err := req.Validate(); err != nil {
		t.Errorf("max-length description rejected: %v", err)
	}
}

func TestCreateReportRequestValidateCountsRunes(t *testing.T) {
	req := validCreateRequest()

	// 200 characters, 600 bytes; the limit is characters, not bytes.
	req.Description = strings.Repeat("水", 200)
	if err := req.Validate(); err != nil {
		t.Errorf("multi-byte description within limits rejected: %v", err)
	}

	req.Description = strings.Repeat("é", DescriptionMinLen)
	if err := req.Validate(); err != nil {
		t.Errorf("min-length multi-byte description rejected: %v", err)
	}

	req.Description = strings.Repeat("水", DescriptionMaxLen+1)
	if err := req.Validate(); err == nil {
		t.Error("expected rejection past the character limit")
	}
}

func TestUpdateReportRequestValidate(t *testing.T) {
	status := StatusResolved
	upd := UpdateReportRequest{Status: &status}
	if err := upd.Validate(); err != nil {
		t.Errorf("status-only update rejected: %v", err)
	}

	// Any of the three states is settable in any order.
	for _, s := range []HazardStatus{StatusActive, StatusInvestigating, StatusResolved} {
		s := s
		if err := (&UpdateReportRequest{Status: &s}).Validate(); err != nil {
			t.Errorf("status %q rejected: %v", s, err)
		}
	}

	bad := HazardStatus("closed")
	if err := (&UpdateReportRequest{Status: &bad}).Validate(); err == nil {
		t.Error("expected rejection of unknown status")
	}

	short := "too short"
	if err := (&UpdateReportRequest{Description: &short}).Validate(); err == nil {
		t.Error("expected rejection of short description")
	}

	if err := (&UpdateReportRequest{}).Validate(); err != nil {
		t.Errorf("empty partial update rejected: %v", err)
	}
}

func TestValidType(t *testing.T) {
	for _, typ := range []HazardType{HazardPothole, HazardWaterlogging, HazardOther} {
		if !ValidType(typ) {
			t.Errorf("expected %q valid", typ)
		}
	}
	if ValidType(HazardUnknown) {
		t.Error("unknown is never a reportable type")
	}
	if ValidType("landslide") {
		t.Error("expected unrecognized type rejected")
	}
}

func TestViewPortContains(t *testing.T) {
	vp := ViewPort{LatMin: 40, LonMin: -75, LatMax: 41, LonMax: -74}

	if !vp.Contains(40.5, -74.5) {
		t.Error("expected interior point contained")
	}
	if !vp.Contains(40, -75) {
		t.Error("expected boundary point contained")
	}
	if vp.Contains(39.9, -74.5) || vp.Contains(40.5, -73.9) {
		t.Error("expected exterior points excluded")
	}
}
