package sessions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idPrefix = "rec"

// ErrInvalidID is returned when a session id does not carry a creation timestamp.
var ErrInvalidID = errors.New("invalid session id")

// NewID returns a session id of the form rec_<unix-millis>_<random>.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%d_%s", idPrefix, now.UnixMilli(), suffix)
}

// CreatedAt extracts the creation time embedded in a session id.
func CreatedAt(id string) (time.Time, error) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[0] != idPrefix || parts[2] == "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return time.UnixMilli(ms), nil
}

// ErrExists is returned when a freshly generated id collides with a stored session.
var ErrExists = errors.New("session already exists")
