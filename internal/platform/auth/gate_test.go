package auth

import "testing"

func TestGateOrderCreate(t *testing.T) {
	allowed := []Role{RoleAdmin, RoleReception, RoleDoctor}
	denied := []Role{RoleLabTech, RolePatient}
	for _, r := range allowed {
		if !Allows(r, ActionOrderCreate) {
			t.Errorf("%s should be allowed to create orders", r)
		}
	}
	for _, r := range denied {
		if Allows(r, ActionOrderCreate) {
			t.Errorf("%s should not be allowed to create orders", r)
		}
	}
}

func TestGateDoctorCannotDriveOrderStatus(t *testing.T) {
	if Allows(RoleDoctor, ActionOrderTransition) {
		t.Error("doctors must not drive order status")
	}
	if Allows(RoleDoctor, ActionOrderPay) {
		t.Error("doctors must not record payments")
	}
}

func TestGateResultActions(t *testing.T) {
	if !Allows(RoleLabTech, ActionResultSubmit) {
		t.Error("lab_tech must be able to submit results")
	}
	if Allows(RoleDoctor, ActionResultSubmit) {
		t.Error("doctors must not submit results")
	}
	if !Allows(RoleDoctor, ActionResultVerify) {
		t.Error("doctors must be able to verify results")
	}
	if Allows(RoleLabTech, ActionResultVerify) {
		t.Error("lab_tech must not verify results")
	}
	if Allows(RoleReception, ActionResultEdit) {
		t.Error("reception must not edit results")
	}
}

func TestGateDeleteIsAdminOnly(t *testing.T) {
	for _, a := range []Action{ActionOrderDelete, ActionResultDelete} {
		for _, r := range []Role{RoleReception, RoleLabTech, RoleDoctor, RolePatient} {
			if Allows(r, a) {
				t.Errorf("%s should not be allowed %s", r, a)
			}
		}
		if !Allows(RoleAdmin, a) {
			t.Errorf("admin should be allowed %s", a)
		}
	}
}

func TestGateReadsExcludePatients(t *testing.T) {
	for _, a := range []Action{ActionOrderRead, ActionResultRead, ActionReportRead} {
		if Allows(RolePatient, a) {
			t.Errorf("patient role should not be allowed %s without portal linkage", a)
		}
		if !Allows(RoleLabTech, a) {
			t.Errorf("lab_tech should be allowed %s", a)
		}
	}
}

func TestGateUnknownAction(t *testing.T) {
	if Allows(RoleAdmin, Action("order:frobnicate")) {
		t.Error("unknown actions must be denied for everyone")
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleLabTech) {
		t.Error("lab_tech is a valid role")
	}
	if ValidRole(Role("superuser")) {
		t.Error("superuser is not a valid role")
	}
}
