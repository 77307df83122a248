package testutil

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/dalemusser/membersadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

var (
	verifications = []string{"VERIFIED", "PENDING", "UNVERIFIED"}
	statuses      = []string{"ACTIVE", "DISABLED", "BLACKLISTED"}
	domains       = []string{"alpha.io", "beta.io"}
)

// RosterRecords returns n deterministic upstream member records in the
// current backend shape. Record i (1-based) has id i, name "Member 0i",
// email "member0i@<domain>", and cycles through the status enums.
func RosterRecords(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		domain := domains[i%len(domains)]
		out = append(out, map[string]any{
			"id":                 i,
			"name":               fmt.Sprintf("Member %02d", i),
			"verificationStatus": verifications[i%len(verifications)],
			"emailAddress":       fmt.Sprintf("member%02d@%s", i, domain),
			"mobileNumber":       fmt.Sprintf("+63917%07d", i),
			"domain":             domain,
			"dateTimeCreated":    time.Date(2024, 1, i%28+1, 8, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"status":             statuses[i%len(statuses)],
			"dateTimeLastActive": time.Date(2024, 3, i%28+1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}
	return out
}

// Members returns the canonical form of RosterRecords(n).
func Members(n int) []models.Member {
	vs := []models.VerificationStatus{models.VerificationVerified, models.VerificationPending, models.VerificationUnverified}
	as := []models.AccountStatus{models.StatusActive, models.StatusDisabled, models.StatusBlocklisted}

	out := make([]models.Member, 0, n)
	for i, rec := range RosterRecords(n) {
		idx := i + 1
		out = append(out, models.Member{
			ID:                 strconv.Itoa(idx),
			Name:               rec["name"].(string),
			VerificationStatus: vs[idx%len(vs)],
			AccountStatus:      as[idx%len(as)],
			Email:              rec["emailAddress"].(string),
			Mobile:             rec["mobileNumber"].(string),
			Domain:             rec["domain"].(string),
			DateRegistered:     rec["dateTimeCreated"].(string),
			LastActive:         rec["dateTimeLastActive"].(string),
		})
	}
	return out
}

// IDs returns the member ids in order.
func IDs(ms []models.Member) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

// TestContext returns a context bounded for a single test operation.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB connects to the MongoDB named by MEMBERSADMIN_TEST_MONGO_URI and
// returns a uniquely named database that is dropped when the test ends. The
// test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MEMBERSADMIN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEMBERSADMIN_TEST_MONGO_URI not set; skipping MongoDB test")
	}

	ctx, cancel := TestContext()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect test MongoDB: %v", err)
	}

	db := client.Database("membersadmin_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
