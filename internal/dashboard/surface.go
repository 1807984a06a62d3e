package dashboard

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"focustrack/internal/tracker"
)

// Surface queues display frames and forwards them into a running
// bubbletea program. It decouples the tracking loop from the renderer:
// frames may start arriving before the program is up, and a stalled
// renderer must never block a state change.
type Surface struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once
}

// Compile-time check that Surface implements the Display interface
var _ tracker.Display = (*Surface)(nil)

func NewSurface() *Surface {
	return &Surface{
		msgs: make(chan tea.Msg, 32),
		done: make(chan struct{}),
	}
}

// Update queues a frame. When the queue is full the frame is dropped;
// a fresher one is at most a tick away.
func (s *Surface) Update(u tracker.DisplayUpdate) { s.push(updateMsg(u)) }

// Notice queues a transient status line.
func (s *Surface) Notice(text string) { s.push(noticeMsg(text)) }

func (s *Surface) push(msg tea.Msg) {
	select {
	case s.msgs <- msg:
	case <-s.done:
	default:
	}
}

// Attach starts forwarding queued messages into p until Detach.
func (s *Surface) Attach(p *tea.Program) {
	go func() {
		for {
			select {
			case msg := <-s.msgs:
				p.Send(msg)
			case <-s.done:
				return
			}
		}
	}()
}

// Detach stops forwarding. Frames pushed afterwards are dropped.
func (s *Surface) Detach() {
	s.once.Do(func() { close(s.done) })
}
