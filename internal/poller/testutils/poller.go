package testutils

import (
	"sync/atomic"

	"github.com/clambin/tadox-monitor/internal/poller"
)

var _ poller.Poller = &Poller{}

// A Poller feeds scripted updates to the component under test.
type Poller struct {
	Ch        chan poller.Update
	Refreshed atomic.Int32
}

func NewPoller() *Poller {
	return &Poller{Ch: make(chan poller.Update)}
}

func (p *Poller) Subscribe() chan poller.Update    { return p.Ch }
func (p *Poller) Unsubscribe(_ chan poller.Update) {}
func (p *Poller) Refresh()                         { p.Refreshed.Add(1) }

// Publish blocks until the component under test has received the update.
func (p *Poller) Publish(update poller.Update) {
	p.Ch <- update
}
