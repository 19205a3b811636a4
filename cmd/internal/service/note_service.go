package service

import (
	"context"
	"errors"
	"strings"
	"telenotes/cmd/internal/contract"
	"telenotes/cmd/internal/domain/database/repository"
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/domain/policy"
	"telenotes/cmd/internal/infrastructure/metrics"
	"telenotes/cmd/internal/utils"
	"telenotes/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type NoteRepository interface {
	FindByOwner(ctx context.Context, ownerID int64, tagNames []string) ([]*entity.Note, error)
	FindOwned(ctx context.Context, ownerID, noteID int64) (*entity.Note, error)
	Create(ctx context.Context, note *entity.Note, tagNames []string) error
	Update(ctx context.Context, ownerID, noteID int64, apply func(note *entity.Note)) (*entity.Note, error)
	AttachTag(ctx context.Context, ownerID, noteID int64, name string, now int64) (*entity.Note, error)
	DetachTag(ctx context.Context, ownerID, noteID int64, name string, now int64) (*entity.Note, error)
}

type DefaultNoteService struct {
	NoteRepo NoteRepository
	Policy   *policy.NotePolicy
	Validate *validator.Validate

	// Clock returns the current time in epoch millis.
	Clock func() int64
}

func NewNoteService(noteRepo NoteRepository, validate *validator.Validate) *DefaultNoteService {
	return &DefaultNoteService{
		NoteRepo: noteRepo,
		Policy:   policy.NewNotePolicy(),
		Validate: validate,
		Clock:    utils.NowUTC,
	}
}

// ListNotes returns every note of the actor, optionally restricted to the
// ones carrying tag. An empty tag means no filter.
func (n *DefaultNoteService) ListNotes(ctx context.Context, actor *entity.User, tag string) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	var filter []string
	if tag = strings.TrimSpace(tag); tag != "" {
		filter = []string{tag}
	}
	return n.findNotes(ctx, actor, filter)
}

// SearchNotes returns the union of the actor's notes carrying any of the
// space-separated tag names in rawTags.
func (n *DefaultNoteService) SearchNotes(ctx context.Context, actor *entity.User, rawTags string) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	names := utils.UniqueStrings(strings.Fields(rawTags))
	if len(names) == 0 {
		return []*contract.NoteResponse{}, nil
	}
	return n.findNotes(ctx, actor, names)
}

func (n *DefaultNoteService) findNotes(ctx context.Context, actor *entity.User, tags []string) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	notes, err := n.NoteRepo.FindByOwner(ctx, actor.ID, tags)
	if err != nil {
		log.Errorf("failed to fetch notes of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		resp[i] = toNoteResponse(note)
	}
	return resp, nil
}

func (n *DefaultNoteService) CreateNote(ctx context.Context, actor *entity.User, req *contract.CreateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	now := n.Clock()
	note := &entity.Note{
		Title:     req.Title,
		Content:   req.Content,
		UserID:    actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := n.NoteRepo.Create(ctx, note, utils.UniqueStrings(req.Tags)); err != nil {
		log.Errorf("failed to create note for user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	metrics.NotesCreated.Inc()
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) GetNote(ctx context.Context, actor *entity.User, noteID int64) (*contract.NoteResponse, apierror.ErrorResponse) {
	note, err := n.NoteRepo.FindOwned(ctx, actor.ID, noteID)
	if err != nil {
		log.Errorf("failed to fetch note %d: %v", noteID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanSee(note, actor); apierr != nil {
		return nil, apierr
	}
	return toNoteResponse(note), nil
}

// UpdateNote only replaces the fields present in req; updated_at always moves.
func (n *DefaultNoteService) UpdateNote(ctx context.Context, actor *entity.User, noteID int64, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	now := n.Clock()
	note, err := n.NoteRepo.Update(ctx, actor.ID, noteID, func(note *entity.Note) {
		if req.Title != nil {
			note.Title = *req.Title
		}
		if req.Content != nil {
			note.Content = *req.Content
		}
		note.UpdatedAt = now
	})
	if err != nil {
		log.Errorf("failed to update note %d: %v", noteID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanSee(note, actor); apierr != nil {
		return nil, apierr
	}
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) AddTag(ctx context.Context, actor *entity.User, noteID int64, req *contract.TagRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	note, err := n.NoteRepo.AttachTag(ctx, actor.ID, noteID, req.TagName, n.Clock())
	if errors.Is(err, repository.ErrTagAlreadyAttached) {
		return nil, apierror.DuplicateTagError
	}

	if err != nil {
		log.Errorf("failed to add tag to note %d: %v", noteID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanSee(note, actor); apierr != nil {
		return nil, apierr
	}
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) RemoveTag(ctx context.Context, actor *entity.User, noteID int64, req *contract.TagRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	note, err := n.NoteRepo.DetachTag(ctx, actor.ID, noteID, req.TagName, n.Clock())
	if errors.Is(err, repository.ErrTagNotAttached) {
		return nil, apierror.TagNotOnNoteError
	}

	if err != nil {
		log.Errorf("failed to remove tag from note %d: %v", noteID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanSee(note, actor); apierr != nil {
		return nil, apierr
	}
	return toNoteResponse(note), nil
}

func toNoteResponse(note *entity.Note) *contract.NoteResponse {
	tags := make([]*contract.TagResponse, len(note.Tags))
	for i, tag := range note.Tags {
		tags[i] = &contract.TagResponse{
			ID:   tag.ID,
			Name: tag.Name,
		}
	}

	return &contract.NoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: utils.FormatEpoch(note.CreatedAt),
		UpdatedAt: utils.FormatEpoch(note.UpdatedAt),
		Tags:      tags,
	}
}
