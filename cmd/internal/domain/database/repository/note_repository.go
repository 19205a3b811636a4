package repository

import (
	"context"
	"errors"
	"telenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTagAlreadyAttached = errors.New("tag already attached to note")
	ErrTagNotAttached     = errors.New("tag not attached to note")
)

// DefaultNoteRepository keeps notes and their tag links. Every lookup is
// scoped by owner: a note belonging to someone else is reported exactly
// like a missing one, (nil, nil).
type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

// FindByOwner returns the owner's notes in insertion order. When tagNames
// is not empty, only notes carrying at least one of them are returned,
// each note at most once.
func (d *DefaultNoteRepository) FindByOwner(ctx context.Context, ownerID int64, tagNames []string) ([]*entity.Note, error) {
	db := d.db.WithContext(ctx)
	query := withTags(db).
		Where("notes.user_id = ?", ownerID).
		Order("notes.id")

	if len(tagNames) > 0 {
		tagged := db.Model(&entity.NoteTag{}).
			Select("note_tag.note_id").
			Joins("JOIN tags ON tags.id = note_tag.tag_id").
			Where("tags.name IN ?", tagNames)
		query = query.Where("notes.id IN (?)", tagged)
	}

	notes := make([]*entity.Note, 0)
	if err := query.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) FindOwned(ctx context.Context, ownerID, noteID int64) (*entity.Note, error) {
	return findOwned(d.db.WithContext(ctx), ownerID, noteID)
}

// Create stores the note and links it to tagNames, creating the tags that
// do not exist yet. Everything happens in one transaction.
func (d *DefaultNoteRepository) Create(ctx context.Context, note *entity.Note, tagNames []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := make([]*entity.Tag, 0, len(tagNames))
		for _, name := range tagNames {
			tag, err := resolveTag(tx, name)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}

		if err := tx.Omit(clause.Associations).Create(note).Error; err != nil {
			return err
		}

		for _, tag := range tags {
			if err := tx.Create(&entity.NoteTag{NoteID: note.ID, TagID: tag.ID}).Error; err != nil {
				return err
			}
		}

		stored, err := findOwned(tx, note.UserID, note.ID)
		if err != nil {
			return err
		}
		note.Tags = stored.Tags
		return nil
	})
}

// Update loads the owned note, lets apply mutate it and writes title,
// content and updated_at back. Returns (nil, nil) when the note is not
// visible to the owner.
func (d *DefaultNoteRepository) Update(ctx context.Context, ownerID, noteID int64, apply func(note *entity.Note)) (*entity.Note, error) {
	var updated *entity.Note
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := findOwned(tx, ownerID, noteID)
		if err != nil || note == nil {
			return err
		}

		apply(note)
		err = tx.Model(note).
			Select("title", "content", "updated_at").
			Updates(map[string]any{
				"title":      note.Title,
				"content":    note.Content,
				"updated_at": note.UpdatedAt,
			}).Error
		if err != nil {
			return err
		}

		updated = note
		return nil
	})
	return updated, err
}

// AttachTag links the tag called name to the owned note, creating the tag
// if needed, and bumps updated_at to now.
func (d *DefaultNoteRepository) AttachTag(ctx context.Context, ownerID, noteID int64, name string, now int64) (*entity.Note, error) {
	var updated *entity.Note
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := findOwned(tx, ownerID, noteID)
		if err != nil || note == nil {
			return err
		}

		for _, tag := range note.Tags {
			if tag.Name == name {
				return ErrTagAlreadyAttached
			}
		}

		tag, err := resolveTag(tx, name)
		if err != nil {
			return err
		}

		err = tx.Create(&entity.NoteTag{NoteID: note.ID, TagID: tag.ID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent request linked the same tag after our read.
			return ErrTagAlreadyAttached
		}

		if err != nil {
			return err
		}

		updated, err = touchAndReload(tx, note, now)
		return err
	})
	return updated, err
}

// DetachTag removes the link between the owned note and the tag called
// name. The tag row itself is kept.
func (d *DefaultNoteRepository) DetachTag(ctx context.Context, ownerID, noteID int64, name string, now int64) (*entity.Note, error) {
	var updated *entity.Note
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := findOwned(tx, ownerID, noteID)
		if err != nil || note == nil {
			return err
		}

		var tag entity.Tag
		err = tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotAttached
		}
		if err != nil {
			return err
		}

		res := tx.Where("note_id = ? AND tag_id = ?", note.ID, tag.ID).Delete(&entity.NoteTag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTagNotAttached
		}

		updated, err = touchAndReload(tx, note, now)
		return err
	})
	return updated, err
}

func findOwned(db *gorm.DB, ownerID, noteID int64) (*entity.Note, error) {
	var note entity.Note
	err := withTags(db).
		Where("notes.id = ? AND notes.user_id = ?", noteID, ownerID).
		First(&note).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}

func touchAndReload(tx *gorm.DB, note *entity.Note, now int64) (*entity.Note, error) {
	err := tx.Model(&entity.Note{}).
		Where("id = ?", note.ID).
		Update("updated_at", now).Error
	if err != nil {
		return nil, err
	}
	return findOwned(tx, note.UserID, note.ID)
}

// resolveTag returns the tag called name, inserting it first when missing.
// The insert ignores conflicts so two requests racing on a new name both
// end up with the same row.
func resolveTag(tx *gorm.DB, name string) (*entity.Tag, error) {
	var tag entity.Tag
	err := tx.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&entity.Tag{Name: name}).Error
	if err != nil {
		return nil, err
	}

	if err = tx.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// withTags eagerly loads tags so every note leaving the repository has
// them materialized.
func withTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.id")
	})
}
