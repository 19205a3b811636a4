package policy

import (
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/utils/apierror"
	"testing"
)

func TestCanSee(t *testing.T) {
	p := NewNotePolicy()
	owner := &entity.User{ID: 1}
	other := &entity.User{ID: 2}
	note := &entity.Note{ID: 10, UserID: owner.ID}

	if err := p.CanSee(note, owner); err != nil {
		t.Errorf("owner CanSee() = %v, want nil", err)
	}

	if err := p.CanSee(note, other); err != apierror.NotFoundError {
		t.Errorf("other CanSee() = %v, want %v", err, apierror.NotFoundError)
	}

	if err := p.CanSee(nil, owner); err != apierror.NotFoundError {
		t.Errorf("missing CanSee() = %v, want %v", err, apierror.NotFoundError)
	}
}
