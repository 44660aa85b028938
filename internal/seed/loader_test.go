package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/terra-clan/contest-engine/internal/models"
)

type provisioned struct {
	role     models.Role
	approved bool
}

type fakeProvisioner struct {
	users map[string]provisioned
}

func (f *fakeProvisioner) ProvisionUser(_ context.Context, name, email, password string, role models.Role, approved bool) (bool, error) {
	email = models.NormalizeEmail(email)
	if _, ok := f.users[email]; ok {
		return false, nil
	}
	f.users[email] = provisioned{role: role, approved: approved}
	return true, nil
}

const sample = `
admins:
  - name: Root
    email: root@contest.test
    password: change-me
evaluators:
  - name: Judge One
    email: one@judges.test
    password: change-me
  - name: Judge Two
    email: Two@Judges.test
    password: change-me
    approved: false
`

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	p := &fakeProvisioner{users: map[string]provisioned{}}

	res, err := ApplyFile(context.Background(), p, path)
	if err != nil {
		t.Fatalf("ApplyFile failed: %v", err)
	}
	if res.Created != 3 || res.Skipped != 0 {
		t.Errorf("expected 3 created, 0 skipped, got %+v", res)
	}

	if got := p.users["root@contest.test"]; got.role != models.RoleAdmin || !got.approved {
		t.Errorf("unexpected admin: %+v", got)
	}
	if got := p.users["one@judges.test"]; got.role != models.RoleEvaluator || !got.approved {
		t.Errorf("evaluator should default to approved: %+v", got)
	}
	if got := p.users["two@judges.test"]; got.approved {
		t.Errorf("evaluator marked approved: false was approved")
	}

	// Second run is a no-op
	res, err = ApplyFile(context.Background(), p, path)
	if err != nil {
		t.Fatalf("second ApplyFile failed: %v", err)
	}
	if res.Created != 0 || res.Skipped != 3 {
		t.Errorf("expected 0 created, 3 skipped, got %+v", res)
	}
}

func TestParseRejectsIncompleteAccounts(t *testing.T) {
	_, err := Parse([]byte("evaluators:\n  - name: Nobody\n    password: x\n"))
	if err == nil {
		t.Fatal("expected error for missing email")
	}
	if !strings.Contains(err.Error(), "evaluators[0]") {
		t.Errorf("error should name the entry, got %q", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
