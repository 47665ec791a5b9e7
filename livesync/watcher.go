package livesync

import (
	"github.com/rjeczalik/notify"
)

// watchDir watches dir (recursively) for writes and creates, translating
// raw filesystem events into a simple wake signal the poll loop can
// select on alongside its ticker (spec §4.4 "secondary wake signal").
// The returned channel is never closed; callers stop watching by
// invoking the returned stop func, which stops delivery to the
// underlying event channel and signals the watcher goroutine to exit.
func watchDir(dir string) (<-chan struct{}, func(), error) {
	events := make(chan notify.EventInfo, 32)
	if err := notify.Watch(dir+"/...", events, notify.Write, notify.Create); err != nil {
		return nil, nil, err
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-events:
				select {
				case wake <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		notify.Stop(events)
		close(done)
	}
	return wake, stop, nil
}
