package geosampler

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"time"

	"driver-client/internal/domain/geo"
)

// ReplayProvider feeds fixes from a newline-delimited JSON stream, one
// LocationSample per line. It stands in for the device GPS when running
// the tracker off-device (simulation, soak tests, demos).
type ReplayProvider struct {
	r io.Reader
	// Interval paces delivery; zero replays as fast as the consumer reads.
	Interval time.Duration
}

// NewReplayProvider returns a provider replaying samples from r.
func NewReplayProvider(r io.Reader) *ReplayProvider {
	return &ReplayProvider{r: r}
}

// Subscribe starts a goroutine that decodes and delivers the fixes.
func (p *ReplayProvider) Subscribe(_ Options) (Subscription, error) {
	sub := &replaySubscription{
		fixes: make(chan geo.LocationSample),
		errs:  make(chan error, 1),
		stop:  make(chan struct{}),
	}

	go func() {
		defer close(sub.fixes)
		defer close(sub.errs)

		sc := bufio.NewScanner(p.r)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}

			var fix geo.LocationSample
			if err := json.Unmarshal(line, &fix); err != nil {
				select {
				case sub.errs <- err:
				case <-sub.stop:
					return
				}
				continue
			}
			if fix.TimestampMs == 0 {
				fix.TimestampMs = time.Now().UnixMilli()
			}

			select {
			case sub.fixes <- fix:
			case <-sub.stop:
				return
			}

			if p.Interval > 0 {
				select {
				case <-time.After(p.Interval):
				case <-sub.stop:
					return
				}
			}
		}
	}()

	return sub, nil
}

type replaySubscription struct {
	fixes chan geo.LocationSample
	errs  chan error
	once  sync.Once
	stop  chan struct{}
}

func (s *replaySubscription) Fixes() <-chan geo.LocationSample { return s.fixes }
func (s *replaySubscription) Errors() <-chan error             { return s.errs }

func (s *replaySubscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
}
