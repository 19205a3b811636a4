package policy

import (
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/utils/apierror"
)

// NotePolicy encapsulates the ownership rule for notes.
// It returns apierror.ErrorResponse directly for seamless integration with handlers.
type NotePolicy struct{}

func NewNotePolicy() *NotePolicy {
	return &NotePolicy{}
}

// CanSee allows only the owner. Missing and foreign notes produce the same
// NotFoundError so note ids of other users cannot be probed.
func (p *NotePolicy) CanSee(note *entity.Note, actor *entity.User) apierror.ErrorResponse {
	if note == nil || actor == nil {
		return apierror.NotFoundError
	}

	if note.UserID != actor.ID {
		return apierror.NotFoundError // ^^
	}
	return nil
}
