package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/itohio/gospectro/pkg/protocol"
)

// handshakeRetry bounds the wait for the first handshake reply. Boards that
// reset when the port opens may miss the first byte.
const handshakeRetry = time.Second

// link speaks the command protocol over an open connection. It is shared by
// Serial and Mock; the owner serializes start and stop.
type link struct {
	reports chan protocol.Report
	acks    chan struct{}

	wmu  sync.Mutex
	conn io.ReadWriter

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newLink(bufSize int) *link {
	ctx, cancel := context.WithCancel(context.Background())
	return &link{
		reports: make(chan protocol.Report, bufSize),
		acks:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// start begins reading lines from conn.
func (l *link) start(conn io.ReadWriter) {
	l.conn = conn
	go l.readLines()
}

// stop cancels the reader. The caller closes the connection and then calls
// wait.
func (l *link) stop() {
	l.cancel()
}

// wait blocks until the reader has exited and closed the reports channel.
func (l *link) wait() {
	<-l.done
}

func (l *link) send(cmd []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	if _, err := l.conn.Write(cmd); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

func (l *link) handshake(ctx context.Context) error {
	// Drop a stale acknowledgement.
	select {
	case <-l.acks:
	default:
	}

	first, cancel := context.WithTimeout(ctx, handshakeRetry)
	defer cancel()
	if err := l.send(protocol.Command(protocol.Handshake)); err != nil {
		return err
	}
	if err := l.awaitAck(first); err != nil && ctx.Err() != nil {
		return err
	}

	if err := l.send(protocol.Command(protocol.Handshake)); err != nil {
		return err
	}
	return l.awaitAck(ctx)
}

func (l *link) awaitAck(ctx context.Context) error {
	select {
	case <-l.acks:
		return nil
	case <-l.ctx.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return fmt.Errorf("%w: handshake: %w", ErrTimeout, ctx.Err())
	}
}

func (l *link) request(ctx context.Context) (protocol.Report, error) {
	if err := l.send(protocol.Command(protocol.VoltageRequest)); err != nil {
		return protocol.Report{}, err
	}

	select {
	case rep, ok := <-l.reports:
		if !ok {
			return protocol.Report{}, ErrNotConnected
		}
		return rep, nil
	case <-l.ctx.Done():
		return protocol.Report{}, ErrNotConnected
	case <-ctx.Done():
		return protocol.Report{}, fmt.Errorf("%w: report: %w", ErrTimeout, ctx.Err())
	}
}

func (l *link) stream(delay time.Duration) error {
	if err := l.send(protocol.DelayCommand(delay)); err != nil {
		return err
	}
	return l.send(protocol.Command(protocol.Stream))
}

func (l *link) stopStream() error {
	return l.send(protocol.Command(protocol.OnRequest))
}

// readLines reads lines from the connection, routes handshake replies to acks
// and parses everything else into reports.
func (l *link) readLines() {
	defer close(l.done)
	defer close(l.reports)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readLines: %v", r)
		}
	}()

	scanner := bufio.NewScanner(l.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == protocol.HandshakeReply {
			select {
			case l.acks <- struct{}{}:
			default:
			}
			continue
		}

		rep, err := protocol.ParseReport(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		// Send report to channel (non-blocking)
		select {
		case l.reports <- rep:
		case <-l.ctx.Done():
			return
		default:
			log.Printf("Reports channel full, dropping report")
		}
	}

	if err := scanner.Err(); err != nil && l.ctx.Err() == nil {
		log.Printf("Error reading from device: %v", err)
	}
}
