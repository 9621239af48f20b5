package discovery

// Listener receives engine and search notifications.
//
// Methods are called from the engine goroutine or from the goroutine that
// started a search, so implementations must not block for long and must be
// safe for concurrent use.
type Listener interface {
	// DeviceDiscovered is called after a node reply has been added to the
	// registry.
	DeviceDiscovered(rec *Record)

	// SearchProgress reports the fallback target about to be queried.
	SearchProgress(text string)

	// SendFailed reports the first failed send of a submission that asked
	// for failure reporting.
	SendFailed(err error)

	// BindDiagnostic carries the interface report produced when the
	// requested interface could not be found.
	BindDiagnostic(text string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	OnDeviceDiscovered func(*Record)
	OnSearchProgress   func(string)
	OnSendFailed       func(error)
	OnBindDiagnostic   func(string)
}

func (l ListenerFuncs) DeviceDiscovered(rec *Record) {
	if l.OnDeviceDiscovered != nil {
		l.OnDeviceDiscovered(rec)
	}
}

func (l ListenerFuncs) SearchProgress(text string) {
	if l.OnSearchProgress != nil {
		l.OnSearchProgress(text)
	}
}

func (l ListenerFuncs) SendFailed(err error) {
	if l.OnSendFailed != nil {
		l.OnSendFailed(err)
	}
}

func (l ListenerFuncs) BindDiagnostic(text string) {
	if l.OnBindDiagnostic != nil {
		l.OnBindDiagnostic(text)
	}
}

// Listeners fans notifications out to several listeners in order.
type Listeners []Listener

func (ls Listeners) DeviceDiscovered(rec *Record) {
	for _, l := range ls {
		l.DeviceDiscovered(rec)
	}
}

func (ls Listeners) SearchProgress(text string) {
	for _, l := range ls {
		l.SearchProgress(text)
	}
}

func (ls Listeners) SendFailed(err error) {
	for _, l := range ls {
		l.SendFailed(err)
	}
}

func (ls Listeners) BindDiagnostic(text string) {
	for _, l := range ls {
		l.BindDiagnostic(text)
	}
}
