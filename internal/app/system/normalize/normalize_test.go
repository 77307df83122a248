package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dalemusser/membersadmin/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func decodeRecord(t *testing.T, payload string) Record {
	t.Helper()
	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func TestMember_CurrentShape(t *testing.T) {
	rec := decodeRecord(t, `{
		"id": 42,
		"name": "Ana Reyes",
		"verificationStatus": "VERIFIED",
		"emailAddress": "ana@example.com",
		"mobileNumber": "+639170000001",
		"domain": "example.com",
		"dateTimeCreated": "2024-01-05T08:00:00Z",
		"status": "BLACKLISTED",
		"dateTimeLastActive": "2024-03-01T10:30:00Z"
	}`)

	got, err := Member(rec)
	if err != nil {
		t.Fatalf("Member: %v", err)
	}

	want := models.Member{
		ID:                 "42",
		Name:               "Ana Reyes",
		VerificationStatus: models.VerificationVerified,
		AccountStatus:      models.StatusBlocklisted,
		Email:              "ana@example.com",
		Mobile:             "+639170000001",
		Domain:             "example.com",
		DateRegistered:     "2024-01-05T08:00:00Z",
		LastActive:         "2024-03-01T10:30:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Member mismatch (-want +got):\n%s", diff)
	}
}

func TestMember_LegacyShape(t *testing.T) {
	rec := decodeRecord(t, `{
		"id": "m-7",
		"name": "<b>Bo</b> Tan",
		"username": "botan",
		"verificationStatus": "Pending",
		"accountStatus": "Disabled",
		"email": "bo@example.org",
		"mobile": "0917",
		"domain": null,
		"dateRegistered": "2023-12-01",
		"lastActive": "2024-02-02T00:00:00Z",
		"balance": 12.5
	}`)

	got, err := Member(rec)
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if got.ID != "m-7" || got.Name != "Bo Tan" || got.Username != "botan" {
		t.Errorf("identity fields: got id=%q name=%q username=%q", got.ID, got.Name, got.Username)
	}
	if got.VerificationStatus != models.VerificationPending || got.AccountStatus != models.StatusDisabled {
		t.Errorf("statuses: got %q / %q", got.VerificationStatus, got.AccountStatus)
	}
	if got.Domain != "" {
		t.Errorf("null domain should degrade to empty, got %q", got.Domain)
	}
	if got.Balance == nil || *got.Balance != 12.5 {
		t.Errorf("balance: got %v, want 12.5", got.Balance)
	}
}

func TestMember_MarkupOnlyStrippedFromDisplayFields(t *testing.T) {
	rec := decodeRecord(t, `{
		"id": "m-9",
		"name": "<i>Ana</i> Cruz",
		"username": "<b>ana</b>",
		"verificationStatus": "VERIFIED",
		"status": "ACTIVE",
		"emailAddress": " Ana <ana@x.com> ",
		"mobileNumber": "<0917>",
		"domain": "x.com"
	}`)

	got, err := Member(rec)
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	want := struct{ Name, Username, Email, Mobile string }{"Ana Cruz", "ana", "Ana <ana@x.com>", "<0917>"}
	gotFields := struct{ Name, Username, Email, Mobile string }{got.Name, got.Username, got.Email, got.Mobile}
	if diff := cmp.Diff(want, gotFields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestMember_Incomplete(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing id", `{"name":"A","verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"null id", `{"id":null,"name":"A","verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"blank id", `{"id":"  ","name":"A","verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"object id", `{"id":{"v":1},"name":"A","verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"missing name", `{"id":1,"verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"blank name", `{"id":1,"name":"   ","verificationStatus":"VERIFIED","status":"ACTIVE"}`},
		{"null verification", `{"id":1,"name":"A","verificationStatus":null,"status":"ACTIVE"}`},
		{"unknown verification", `{"id":1,"name":"A","verificationStatus":"MAYBE","status":"ACTIVE"}`},
		{"missing status", `{"id":1,"name":"A","verificationStatus":"VERIFIED"}`},
		{"unknown status", `{"id":1,"name":"A","verificationStatus":"VERIFIED","status":"FROZEN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Member(decodeRecord(t, tt.payload))
			if !errors.Is(err, ErrIncompleteRecord) {
				t.Errorf("Member error = %v, want ErrIncompleteRecord", err)
			}
		})
	}
}

func TestMembers_FailsFast(t *testing.T) {
	recs := []Record{
		decodeRecord(t, `{"id":1,"name":"A","verificationStatus":"VERIFIED","status":"ACTIVE"}`),
		decodeRecord(t, `{"id":2,"verificationStatus":"VERIFIED","status":"ACTIVE"}`),
	}
	got, err := Members(recs)
	if !errors.Is(err, ErrIncompleteRecord) {
		t.Fatalf("Members error = %v, want ErrIncompleteRecord", err)
	}
	if got != nil {
		t.Errorf("expected nil members on error, got %d", len(got))
	}
}

func TestAccountStatus(t *testing.T) {
	tests := []struct {
		input  string
		want   models.AccountStatus
		wantOK bool
	}{
		{"ACTIVE", models.StatusActive, true},
		{"active", models.StatusActive, true},
		{" Disabled ", models.StatusDisabled, true},
		{"BLACKLISTED", models.StatusBlocklisted, true},
		{"Blocklisted", models.StatusBlocklisted, true},
		{"", "", false},
		{"banned", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := AccountStatus(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("AccountStatus(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVerificationStatus(t *testing.T) {
	tests := []struct {
		input  string
		want   models.VerificationStatus
		wantOK bool
	}{
		{"VERIFIED", models.VerificationVerified, true},
		{"pending", models.VerificationPending, true},
		{"Unverified", models.VerificationUnverified, true},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := VerificationStatus(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("VerificationStatus(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestValues(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"only blanks", []string{"", "  "}, nil},
		{"trim and dedupe", []string{" ana ", "bo", "ana", "", "bo "}, []string{"ana", "bo"}},
		{"case sensitive", []string{"Ana", "ana"}, []string{"Ana", "ana"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Values(tt.input)); diff != "" {
				t.Errorf("Values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
