package lifecycle

import "testing"

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name    string
		current State
		next    State
		wantErr Kind
	}{
		{"creation", None, Created, ""},
		{"created to out for delivery is invalid", Created, OutForDelivery, KindInvalidTransition},
		{"created to manager approved", Created, ManagerApproved, ""},
		{"terminal state has no successor", Cancelled, Created, KindInvalidTransition},
		{"unknown current state", State("BOGUS"), Created, KindUnknownCurrentState},
		{"delivered closes", Delivered, LifecycleClosed, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.current, tc.next)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var lerr *Error
			if err == nil {
				t.Fatalf("expected error kind %s, got nil", tc.wantErr)
			}
			lerr, ok := err.(*Error)
			if !ok {
				t.Fatalf("expected *Error, got %T", err)
			}
			if lerr.Kind != tc.wantErr {
				t.Fatalf("expected kind %s, got %s", tc.wantErr, lerr.Kind)
			}
		})
	}
}

func TestValidateMetadataUpdate(t *testing.T) {
	if err := ValidateMetadataUpdate(InTransit); err != nil {
		t.Fatalf("expected metadata update allowed from non-terminal state, got %v", err)
	}
	if err := ValidateMetadataUpdate(Cancelled); err == nil {
		t.Fatal("expected metadata update to be rejected from a terminal state")
	}
}

func TestValidateRoleAuthority(t *testing.T) {
	if err := ValidateRoleAuthority(RoleSender, None, EventShipmentCreated); err != nil {
		t.Fatalf("sender should be able to create a shipment: %v", err)
	}
	if err := ValidateRoleAuthority(RoleSender, ManagerOnHold, EventManagerApproved); err == nil {
		t.Fatal("expected SENDER to be unauthorized for MANAGER_APPROVED")
	}
	if err := ValidateRoleAuthority(RoleSenderManager, ManagerOnHold, EventManagerApproved); err != nil {
		t.Fatalf("sender manager should be authorized: %v", err)
	}
}
