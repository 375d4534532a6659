package grabber

// Notifier receives run outcomes for delivery to an external channel
type Notifier interface {
	// Notify reports a completed run
	Notify(result *RunResult) error
	// NotifyError reports a failed run
	NotifyError(message string) error
}

// NopNotifier discards all notifications
type NopNotifier struct{}

func (NopNotifier) Notify(*RunResult) error  { return nil }
func (NopNotifier) NotifyError(string) error { return nil }
