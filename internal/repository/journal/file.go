package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/gtk-bootstrap/internal/config"
	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
)

// Repository defines persistence operations for the run journal.
type Repository interface {
	Load(ctx context.Context) (*provision.Journal, error)
	Save(ctx context.Context, journal *provision.Journal) error
}

// FileRepository persists the journal to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the journal file.
	path string
	// mu protects concurrent access to the journal file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no journal has been written yet.
	ErrNotFound = errors.New("journal not found")

	errMalformed = errors.New("malformed journal")
)

// Document keys.
const (
	keyStartedAt  = "startedAt"
	keyFinishedAt = "finishedAt"
	keyActor      = "actor"
	keyHostname   = "hostname"
	keyUsername   = "username"
	keyRecipe     = "recipe"
	keySteps      = "steps"
	keyName       = "name"
	keyStatus     = "status"
	keyDetail     = "detail"
	keySucceeded  = "succeeded"
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the journal file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the journal from disk.
func (r *FileRepository) Load(_ context.Context) (*provision.Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode journal file: %w", err)
	}

	return fromStruct(&document)
}

// Save writes the journal to disk.
func (r *FileRepository) Save(_ context.Context, journal *provision.Journal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, err := structpb.NewStruct(toMap(journal))
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write journal file: %w", err)
	}

	return nil
}

// toMap converts the journal into a structpb-compatible map.
func toMap(journal *provision.Journal) map[string]any {
	steps := make([]any, 0, len(journal.Steps))
	for _, step := range journal.Steps {
		steps = append(steps, map[string]any{
			keyName:   step.Name,
			keyStatus: string(step.Status),
			keyDetail: step.Detail,
		})
	}

	document := map[string]any{
		keyStartedAt:  formatTime(journal.StartedAt),
		keyFinishedAt: formatTime(journal.FinishedAt),
		keyRecipe:     journal.Recipe,
		keySteps:      steps,
		keySucceeded:  journal.Succeeded,
	}

	if journal.Actor != nil {
		document[keyActor] = map[string]any{
			keyHostname: journal.Actor.Hostname,
			keyUsername: journal.Actor.Username,
		}
	}

	return document
}

// fromStruct converts a decoded document back into the journal.
func fromStruct(document *structpb.Struct) (*provision.Journal, error) {
	fields := document.GetFields()

	startedAt, err := parseTime(fields[keyStartedAt].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errMalformed, keyStartedAt, err)
	}

	finishedAt, err := parseTime(fields[keyFinishedAt].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errMalformed, keyFinishedAt, err)
	}

	journal := &provision.Journal{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Recipe:     fields[keyRecipe].GetStringValue(),
		Succeeded:  fields[keySucceeded].GetBoolValue(),
	}

	if actor := fields[keyActor].GetStructValue(); actor != nil {
		journal.Actor = &provision.Actor{
			Hostname: actor.GetFields()[keyHostname].GetStringValue(),
			Username: actor.GetFields()[keyUsername].GetStringValue(),
		}
	}

	for i, value := range fields[keySteps].GetListValue().GetValues() {
		step := value.GetStructValue()
		if step == nil {
			return nil, fmt.Errorf("%w: step %d is not an object", errMalformed, i)
		}

		stepFields := step.GetFields()
		journal.Record(
			stepFields[keyName].GetStringValue(),
			provision.StepStatus(stepFields[keyStatus].GetStringValue()),
			stepFields[keyDetail].GetStringValue(),
		)
	}

	return journal, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, value)
}
