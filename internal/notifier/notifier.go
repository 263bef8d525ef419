// Package notifier informs the user of actions taken on their home (presence
// switches, offset updates), either through the log or on Slack.
package notifier

type Notifier interface {
	Notify(msg string)
}

type Notifiers []Notifier

func (n Notifiers) Notify(msg string) {
	for _, notifier := range n {
		notifier.Notify(msg)
	}
}
