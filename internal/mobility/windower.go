package mobility

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// WindowOptions configures a Windower
type WindowOptions struct {
	// Area drops observations outside the box. A zero Area keeps everything.
	Area spatial.Area
	// Location is the timezone of the 03:00 day boundary. Nil means UTC.
	Location *time.Location
	// SplitRatio is passed to NewPersonDay. Nil means DefaultSplitRatio.
	SplitRatio *float64
	// MaxDistinctLocations drops days visiting more distinct places. Zero disables it.
	MaxDistinctLocations int
	Logger               *zap.Logger
}

// WindowStats counts what a Windower did with its input
type WindowStats struct {
	Read      int64 `json:"read"`
	Malformed int64 `json:"malformed"`
	Unknown   int64 `json:"unknown"`
	OutOfArea int64 `json:"out_of_area"`
	Emitted   int64 `json:"emitted"`
	Oversized int64 `json:"oversized"`
	Failed    int64 `json:"failed"`
}

// EmitFunc receives every completed person-day. Returning an error stops the stream.
type EmitFunc func(day *PersonDay) error

// Windower groups an ordered observation stream into person-days. The input
// must be sorted by user, then by time; a change of user or of day window
// closes the current buffer.
type Windower struct {
	locations *locmap.Map
	opts      WindowOptions
	ratio     float64
	emit      EmitFunc
	logger    *zap.Logger

	uid         int64
	window      DayWindow
	timestamps  []int64
	locs        []int64
	coordinates []spatial.Coordinate

	stats WindowStats
}

// NewWindower creates a windower. It fails with locmap.ErrNotLoaded when the
// location map is empty, since no observation could ever be resolved.
func NewWindower(locations *locmap.Map, opts WindowOptions, emit EmitFunc) (*Windower, error) {
	if err := locations.Validate(); err != nil {
		return nil, err
	}
	if emit == nil {
		return nil, errors.New("emit function is required")
	}
	ratio := DefaultSplitRatio
	if opts.SplitRatio != nil {
		ratio = *opts.SplitRatio
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("split ratio %v outside [0,1]", ratio)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Windower{
		locations: locations,
		opts:      opts,
		ratio:     ratio,
		emit:      emit,
		logger:    logger.Named("windower"),
	}, nil
}

// Push adds one observation. Unknown locations and points outside the area are
// skipped without touching the buffer.
func (w *Windower) Push(obs Observation) error {
	w.stats.Read++

	coord, err := w.locations.Resolve(obs.Location)
	if err != nil {
		w.stats.Unknown++
		w.logger.Debug("skipping observation", zap.Int64("user", obs.UserID), zap.Error(err))
		return nil
	}
	if !w.opts.Area.IsZero() && !w.opts.Area.Contains(coord) {
		w.stats.OutOfArea++
		return nil
	}

	window := DayRange(obs.Timestamp, w.opts.Location)
	if len(w.timestamps) > 0 && (obs.UserID != w.uid || !window.Start.Equal(w.window.Start)) {
		if err := w.Flush(); err != nil {
			return err
		}
	}

	w.uid = obs.UserID
	w.window = window
	w.timestamps = append(w.timestamps, obs.Timestamp)
	w.locs = append(w.locs, obs.Location)
	w.coordinates = append(w.coordinates, coord)
	return nil
}

// Flush closes the current buffer and emits it as a person-day. The day is
// padded with a closing stay at the first location exactly 24h after the first
// observation, unless the buffer already ends there.
func (w *Windower) Flush() error {
	if len(w.timestamps) == 0 {
		return nil
	}
	defer w.reset()

	closing := w.timestamps[0] + DaySeconds
	if w.timestamps[len(w.timestamps)-1] != closing {
		w.timestamps = append(w.timestamps, closing)
		w.locs = append(w.locs, w.locs[0])
		w.coordinates = append(w.coordinates, w.coordinates[0])
	}

	day, err := NewPersonDay(w.uid, w.window, w.timestamps, w.locs, w.coordinates, w.ratio)
	if err != nil {
		w.stats.Failed++
		w.logger.Warn("dropping person-day", zap.Int64("user", w.uid), zap.Error(err))
		return nil
	}

	if limit := w.opts.MaxDistinctLocations; limit > 0 && day.DistinctLocations() > limit {
		w.stats.Oversized++
		w.logger.Debug("dropping oversized person-day",
			zap.Int64("user", w.uid),
			zap.Int("date", day.DateID()),
			zap.Int("distinct", day.DistinctLocations()))
		return nil
	}

	w.stats.Emitted++
	return w.emit(day)
}

// Stats returns the counters accumulated so far
func (w *Windower) Stats() WindowStats {
	return w.stats
}

func (w *Windower) reset() {
	w.timestamps = nil
	w.locs = nil
	w.coordinates = nil
}

// MaxLineBytes bounds one observation line; longer lines are dropped as malformed
const MaxLineBytes = 1 << 20

// ReadDays drives the windower over a "uid,ts,loc" text stream. Blank lines
// and '#' comments are ignored; malformed or oversized lines are counted and
// dropped. The last buffer is flushed at end of stream.
func ReadDays(ctx context.Context, r io.Reader, w *Windower) error {
	br := bufio.NewReaderSize(r, 64*1024)

	line := 0
	for {
		raw, tooLong, err := readLine(br, MaxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading observations: %w", err)
		}

		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if tooLong {
			w.stats.Malformed++
			w.logger.Debug("dropping oversized line", zap.Int("line", line))
			continue
		}

		text := strings.TrimSpace(string(raw))
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		obs, err := ParseObservation(text)
		if err != nil {
			w.stats.Malformed++
			w.logger.Debug("dropping malformed line", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err := w.Push(obs); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}

	return w.Flush()
}

// readLine returns the next line without holding more than limit bytes of it.
// A longer line is consumed up to its newline and reported as tooLong. io.EOF
// is only returned once the input is exhausted.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && (len(line) > 0 || tooLong):
			return line, tooLong, nil
		default:
			return line, tooLong, err
		}
	}
}
