package contract

const (
	MaxTitleLength   = 255
	MaxContentLength = 1_000_000
	MaxTagLength     = 50
)

type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type NoteResponse struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Tags      []*TagResponse `json:"tags"`
}

type CreateNoteRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=255"`
	Content string   `json:"content" sanitize:"-" validate:"max=1000000"`
	Tags    []string `json:"tags" validate:"required,max=50,dive,required,max=50,nospaces"`
}

// UpdateNoteRequest only touches the fields that are present in the body.
type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitnil,min=1,max=255"`
	Content *string `json:"content" sanitize:"-" validate:"omitnil,max=1000000"`
}

type TagRequest struct {
	TagName string `query:"tag_name" validate:"required,max=50,nospaces"`
}
