package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
)

// ErrRefused is returned when the remote wallet answers with an error.
var ErrRefused = errors.New("wallet refused request")

type transferReply struct {
	Receipt ledgertypes.Receipt `json:"receipt"`
	Error   string              `json:"error,omitempty"`
}

type reverseReply struct {
	Error string `json:"error,omitempty"`
}

// NATS forwards transfers to a wallet service over NATS request/reply.
type NATS struct {
	conn            *nats.Conn
	transferSubject string
	reverseSubject  string
	timeout         time.Duration
}

// NewNATS returns a transferer that talks to the wallet service on conn.
func NewNATS(conn *nats.Conn, transferSubject, reverseSubject string, timeout time.Duration) *NATS {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATS{
		conn:            conn,
		transferSubject: transferSubject,
		reverseSubject:  reverseSubject,
		timeout:         timeout,
	}
}

// Transfer asks the wallet service to pay transfer and returns its receipt.
func (w *NATS) Transfer(ctx context.Context, transfer ledgertypes.Transfer) (ledgertypes.Receipt, error) {
	var reply transferReply
	if err := w.request(ctx, w.transferSubject, transfer, &reply); err != nil {
		return ledgertypes.Receipt{}, err
	}
	if reply.Error != "" {
		return ledgertypes.Receipt{}, fmt.Errorf("%w: %s", ErrRefused, reply.Error)
	}
	if reply.Receipt.ID == uuid.Nil {
		return ledgertypes.Receipt{}, fmt.Errorf("%w: reply carried no receipt", ErrRefused)
	}
	return reply.Receipt, nil
}

// Reverse asks the wallet service to undo a receipt.
func (w *NATS) Reverse(ctx context.Context, receipt ledgertypes.Receipt) error {
	var reply reverseReply
	if err := w.request(ctx, w.reverseSubject, receipt, &reply); err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("%w: %s", ErrRefused, reply.Error)
	}
	return nil
}

func (w *NATS) request(ctx context.Context, subject string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	msg, err := w.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	return nil
}

// Serve answers transfer and reverse requests on conn using backend. It lets
// a local Memory wallet stand in for the wallet service.
func Serve(conn *nats.Conn, transferSubject, reverseSubject, queue string, backend interface {
	Transfer(context.Context, ledgertypes.Transfer) (ledgertypes.Receipt, error)
	Reverse(context.Context, ledgertypes.Receipt) error
}) (func() error, error) {
	transferSub, err := conn.QueueSubscribe(transferSubject, queue, func(m *nats.Msg) {
		var t ledgertypes.Transfer
		reply := transferReply{}
		if err := json.Unmarshal(m.Data, &t); err != nil {
			reply.Error = err.Error()
		} else if receipt, err := backend.Transfer(context.Background(), t); err != nil {
			reply.Error = err.Error()
		} else {
			reply.Receipt = receipt
		}
		respond(m, reply)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", transferSubject, err)
	}

	reverseSub, err := conn.QueueSubscribe(reverseSubject, queue, func(m *nats.Msg) {
		var r ledgertypes.Receipt
		reply := reverseReply{}
		if err := json.Unmarshal(m.Data, &r); err != nil {
			reply.Error = err.Error()
		} else if err := backend.Reverse(context.Background(), r); err != nil {
			reply.Error = err.Error()
		}
		respond(m, reply)
	})
	if err != nil {
		_ = transferSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", reverseSubject, err)
	}

	return func() error {
		return errors.Join(transferSub.Unsubscribe(), reverseSub.Unsubscribe())
	}, nil
}

func respond(m *nats.Msg, reply any) {
	data, err := json.Marshal(reply)
	if err != nil {
		data = []byte(`{"error":"encode reply"}`)
	}
	_ = m.Respond(data)
}
