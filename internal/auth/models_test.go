package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/ToySwap/TS-Backend/internal/auth"
)

// TestUserJSONExposesNoServerFields verifies serialized users carry no
// privilege or credential fields. Register decodes client JSON straight into
// User, so anything beyond profile data must not exist on the struct or be
// tagged out of it.
func TestUserJSONExposesNoServerFields(t *testing.T) {
	user := auth.User{
		UserID:         "u-1",
		Username:       "casey",
		HashedPassword: "$2a$10$secret",
		AvatarKey:      "avatars/20260901/u-1.png",
		City:           "Portland",
	}

	raw, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"role", "hashed_password", "HashedPassword", "AvatarKey", "avatar_key"} {
		if _, ok := fields[key]; ok {
			t.Errorf("serialized user leaks %q", key)
		}
	}
}

func TestGeoComplete(t *testing.T) {
	complete := auth.User{City: "Portland", Lat: 45.5152, Lng: -122.6784}
	if !complete.GeoComplete() {
		t.Error("expected a located user to be geo-complete")
	}

	for name, u := range map[string]auth.User{
		"no city":   {Lat: 45.5, Lng: -122.7},
		"no coords": {City: "Portland"},
		"zero user": {},
	} {
		if u.GeoComplete() {
			t.Errorf("%s: expected geo-incomplete", name)
		}
	}
}
