package agreement

import "testing"

func TestStatusValidity(t *testing.T) {
	valid := []Status{StatusOpen, StatusMatched, StatusCompleted, StatusCancelled, StatusExpired}
	for _, s := range valid {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status(200).Valid() {
		t.Fatal("expected out-of-range status to be invalid")
	}
}

func TestStatusTerminality(t *testing.T) {
	cases := map[Status]bool{
		StatusOpen:      false,
		StatusMatched:   false,
		StatusCompleted: true,
		StatusCancelled: true,
		StatusExpired:   true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s: terminal = %v, want %v", status, got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := testAgreement(1)
	original.Joined = true
	original.Responder = newTestAddress(0x02)
	original.ResponderLock = &Lock{Amount: 50, CommittedAt: testEpoch}

	clone := original.Clone()
	clone.ResponderLock.Amount = 999
	clone.Status = StatusExpired

	if original.ResponderLock.Amount != 50 {
		t.Fatalf("clone shares responder lock: %+v", original.ResponderLock)
	}
	if original.Status != StatusOpen {
		t.Fatalf("clone shares status: %s", original.Status)
	}
}

func TestSanitizeRejectsInconsistentState(t *testing.T) {
	if _, err := Sanitize(nil); err == nil {
		t.Fatal("expected nil agreement to fail")
	}

	zeroLock := testAgreement(1)
	zeroLock.InitiatorLock.Amount = 0
	if _, err := Sanitize(zeroLock); err == nil {
		t.Fatal("expected zero initiator lock to fail")
	}

	joinedWithoutLock := testAgreement(2)
	joinedWithoutLock.Joined = true
	if _, err := Sanitize(joinedWithoutLock); err == nil {
		t.Fatal("expected joined agreement without lock to fail")
	}

	lockWithoutJoin := testAgreement(3)
	lockWithoutJoin.ResponderLock = &Lock{Amount: 10, CommittedAt: testEpoch}
	if _, err := Sanitize(lockWithoutJoin); err == nil {
		t.Fatal("expected responder lock before join to fail")
	}

	badStatus := testAgreement(4)
	badStatus.Status = Status(77)
	if _, err := Sanitize(badStatus); err == nil {
		t.Fatal("expected invalid status to fail")
	}
}
