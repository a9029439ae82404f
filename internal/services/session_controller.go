package services

import (
	"sync"
	"time"

	"github.com/cbt-exam/cbt-service/internal/models"
)

// defaultTick is the countdown resolution. Tests inject a shorter interval.
const defaultTick = time.Second

// sessionController owns the countdown for one attempt. It is constructed
// with the session and exam it governs; it never reaches into storage on its
// own. The submit latch guarantees an attempt finishes exactly once, whether
// the student submits or the clock runs out.
type sessionController struct {
	mu        sync.Mutex
	session   *models.ExamSession
	exam      *models.Exam
	remaining int // seconds
	submitted bool

	stop     chan struct{}
	stopOnce sync.Once
	onExpire func()
}

// newSessionController starts the countdown fresh from the exam's full
// duration. onExpire fires exactly once when the clock reaches zero, unless
// the attempt was submitted first.
func newSessionController(session *models.ExamSession, exam *models.Exam, tick time.Duration, onExpire func()) *sessionController {
	if tick <= 0 {
		tick = defaultTick
	}
	c := &sessionController{
		session:   session,
		exam:      exam,
		remaining: int(exam.Duration().Seconds()),
		stop:      make(chan struct{}),
		onExpire:  onExpire,
	}
	go c.run(tick)
	return c
}

func (c *sessionController) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.countDown() {
				c.Close()
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
		}
	}
}

// countDown advances the clock one step and reports whether it just expired.
func (c *sessionController) countDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted || c.remaining <= 0 {
		return false
	}
	c.remaining--
	r := c.remaining
	c.session.TimeRemaining = &r
	return c.remaining == 0
}

func (c *sessionController) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// SetAnswer records the student's answer on the governed session.
func (c *sessionController) SetAnswer(questionID string, answer models.AnswerValue) *models.ExamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.SetAnswer(questionID, answer)
	return c.snapshotLocked()
}

// TrySubmit flips the latch. Only the first caller gets true; everyone after
// that sees the attempt as already finished.
func (c *sessionController) TrySubmit() (*models.ExamSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return nil, false
	}
	c.submitted = true
	return c.snapshotLocked(), true
}

func (c *sessionController) Snapshot() *models.ExamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *sessionController) snapshotLocked() *models.ExamSession {
	s := *c.session
	s.Answers = make([]models.StudentAnswer, len(c.session.Answers))
	copy(s.Answers, c.session.Answers)
	return &s
}

// Close stops the countdown. Safe to call more than once.
func (c *sessionController) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
