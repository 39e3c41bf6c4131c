package audit

import (
	"fmt"
	"sync"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil writer disables auditing.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}
	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a FileWriter for path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global writer and disables auditing.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog is Log with an error suitable for failing the parent operation.
//
//	if err := audit.MustLog(event); err != nil {
//	    return nil, err
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// CertificateObject describes cert as the object of an event.
func CertificateObject(objType string, cert *x509util.Certificate) Object {
	obj := Object{Type: objType}
	if cert != nil {
		obj.Subject = cert.Subject()
		obj.Serial = cert.SerialHex()
		obj.Fingerprint = cert.FingerprintHex()
	}
	return obj
}

// LogOperation records the outcome of an engine or codec operation. When opErr
// is set the newest reason of its error stack becomes the context reason.
func LogOperation(eventType EventType, obj Object, ctx Context, opErr error) error {
	if opErr != nil && ctx.Reason == "" {
		ctx.Reason = failureReason(opErr)
	}
	return MustLog(NewEvent(eventType, ResultOf(opErr)).WithObject(obj).WithContext(ctx))
}

// LogKeyLoaded records a private key load. The key itself is never logged,
// only its algorithm.
func LogKeyLoaded(algorithm, requestID string, opErr error) error {
	return LogOperation(EventKeyLoaded, Object{Type: "key"}, Context{
		Algorithm: algorithm,
		RequestID: requestID,
	}, opErr)
}

func failureReason(err error) string {
	records := errstack.Records(err)
	for i := len(records) - 1; i >= 0; i-- {
		if reason, ok := records[i].Reason.Get(); ok {
			return reason
		}
	}
	return err.Error()
}
