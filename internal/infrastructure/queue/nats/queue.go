package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/resilience"
)

const workerGroup = "ingest-workers"

// Queue carries ingestion triggers and status queries between the API
// process and the worker over NATS request-reply. The job state lives
// only in the worker; the API never tracks runs itself.
type Queue struct {
	conn           *nats.Conn
	triggerSubject string
	statusSubject  string
	requestTimeout time.Duration
	executor       *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RequestTimeout       time.Duration
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("legal-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		triggerSubject: subject,
		statusSubject:  subject + ".status",
		requestTimeout: requestTimeout,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type stateReply struct {
	State    domain.IngestionState `json:"state"`
	Conflict bool                  `json:"conflict,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func (q *Queue) RequestIngestion(ctx context.Context) (domain.IngestionState, error) {
	reply, err := q.request(ctx, "ingest.trigger", q.triggerSubject)
	if err != nil {
		return domain.IngestionState{}, err
	}
	if reply.Conflict {
		return reply.State, fmt.Errorf("trigger ingestion: %w", domain.ErrIngestionRunning)
	}
	if reply.Error != "" {
		return reply.State, fmt.Errorf("trigger ingestion: %s", reply.Error)
	}
	return reply.State, nil
}

func (q *Queue) FetchStatus(ctx context.Context) (domain.IngestionState, error) {
	reply, err := q.request(ctx, "ingest.status", q.statusSubject)
	if err != nil {
		return domain.IngestionState{}, err
	}
	return reply.State, nil
}

func (q *Queue) request(ctx context.Context, operation, subject string) (stateReply, error) {
	var reply stateReply
	call := func(callCtx context.Context) error {
		reqCtx, cancel := context.WithTimeout(callCtx, q.requestTimeout)
		defer cancel()

		msg, err := q.conn.RequestWithContext(reqCtx, subject, nil)
		if err != nil {
			return fmt.Errorf("nats request %s: %w", subject, err)
		}
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			return fmt.Errorf("decode %s reply: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats."+operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return stateReply{}, wrapTemporaryIfNeeded(err)
	}
	return reply, nil
}

// SubscribeIngestion serves the worker side of the contract until ctx is
// cancelled. The trigger callback must return promptly; running the
// actual ingestion belongs to the callback, not the transport.
func (q *Queue) SubscribeIngestion(
	ctx context.Context,
	trigger func(context.Context) (domain.IngestionState, error),
	status func(context.Context) domain.IngestionState,
) error {
	triggerSub, err := q.conn.QueueSubscribe(q.triggerSubject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		state, err := trigger(ctx)
		reply := stateReply{State: state}
		switch {
		case errors.Is(err, domain.ErrIngestionRunning):
			reply.Conflict = true
			reply.Error = err.Error()
		case err != nil:
			reply.Error = err.Error()
		}
		q.respond(msg, reply)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe trigger: %w", err)
	}

	statusSub, err := q.conn.QueueSubscribe(q.statusSubject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		q.respond(msg, stateReply{State: status(ctx)})
	})
	if err != nil {
		return fmt.Errorf("nats subscribe status: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := triggerSub.Drain(); err != nil {
		return fmt.Errorf("nats drain trigger subscription: %w", err)
	}
	if err := statusSub.Drain(); err != nil {
		return fmt.Errorf("nats drain status subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) respond(msg *nats.Msg, reply stateReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("marshal ingest reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("respond ingest reply: %v", err)
	}
}
