package sink

import (
	"errors"
	"fmt"
	"log"

	"github.com/gopxl/beep"
)

// autoOrder is the preference order for the "auto" backend
var autoOrder = []string{"speaker", "pipe", "offline"}

// OpenAuto opens the first sink that accepts the format, in autoOrder.
// Offline always succeeds so a nil error is guaranteed unless the root is nil.
func OpenAuto(format beep.Format, root beep.Streamer, logger *log.Logger) (Sink, error) {
	return openFirst(autoOrder, format, root, logger)
}

// Open creates and opens the named sink; "auto" falls back through autoOrder
func Open(name string, format beep.Format, root beep.Streamer, logger *log.Logger) (Sink, error) {
	if name == "" || name == "auto" {
		return OpenAuto(format, root, logger)
	}
	return openFirst([]string{name}, format, root, logger)
}

func openFirst(names []string, format beep.Format, root beep.Streamer, logger *log.Logger) (Sink, error) {
	if root == nil {
		return nil, errors.New("sink: nil root streamer")
	}

	var errs []error
	for _, name := range names {
		s, err := New(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.Open(format, root); err != nil {
			if logger != nil {
				logger.Printf("[sink] %s unavailable: %v", name, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if logger != nil {
			logger.Printf("[sink] using %s", s.Name())
		}
		return s, nil
	}
	return nil, errors.Join(errs...)
}
