package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/guseggert/thermagent/agent/dispatch"
	"github.com/guseggert/thermagent/agent/tail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Dispatcher turns a command into a job, or nil if the command produces no event.
type Dispatcher interface {
	Dispatch(cmd dispatch.Command) dispatch.Job
}

type Server struct {
	Log        *zap.SugaredLogger
	Dispatcher Dispatcher
	// OriginPatterns lists extra host patterns browsers may connect from.
	// Pages served by the agent's own host, and clients that send no Origin, are always accepted.
	OriginPatterns []string
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
		OriginPatterns:  s.OriginPatterns,
	})
	if err != nil {
		s.Log.Debugf("error accepting WebSocket conn: %s", err)
		return
	}
	wsConn.SetReadLimit(readLimit)

	id := uuid.NewString()
	log := s.Log.Named("session").With("Session", id)
	log.Debugw("accepted WebSocket conn", "RemoteAddr", r.RemoteAddr)

	sess := &session{
		log:        log,
		conn:       wsConn,
		dispatcher: s.Dispatcher,
		lines:      tail.NewTracker(),
		actions:    make(chan string),
		finished:   make(chan dispatch.Finish),
	}
	sess.run(r.Context())
}

// session is the state for one connection.
// lines is only touched from the loop goroutine.
type session struct {
	log        *zap.SugaredLogger
	conn       *websocket.Conn
	dispatcher Dispatcher

	lines *tail.Tracker

	actions  chan string
	finished chan dispatch.Finish

	jobs sync.WaitGroup
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := s.write(ctx, dispatch.EventStatus, StatusData{Stat: StatReady})
	if err != nil {
		s.log.Debugf("error sending ready status: %s", err)
		s.conn.Close(websocket.StatusInternalError, "sending ready status")
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.readMessages(groupCtx) })
	group.Go(func() error { return s.loop(groupCtx) })
	err = group.Wait()

	// in-flight captured processes are killed by the canceled context; wait for their jobs to unwind
	cancel()
	s.jobs.Wait()

	if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
		s.log.Debug("client closed the conn")
		return
	}
	s.log.Debugf("session ended: %s", err)
	s.conn.Close(websocket.StatusInternalError, "session ended")
}

// readMessages feeds actions to the loop until the conn fails or closes.
func (s *session) readMessages(ctx context.Context) error {
	for {
		var msg Message
		err := wsjson.Read(ctx, s.conn, &msg)
		if err != nil {
			return err
		}
		if msg.Event != EventAction {
			s.log.Debugw("ignoring unknown event", "Event", msg.Event)
			continue
		}
		action, err := msg.Action()
		if err != nil {
			s.log.Debugf("ignoring malformed action: %s", err)
			continue
		}
		select {
		case s.actions <- action.Command:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// loop owns the tail memory and all writes to the conn.
func (s *session) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-s.actions:
			s.dispatch(ctx, raw)
		case finish := <-s.finished:
			ev := finish(s.lines)
			err := s.write(ctx, ev.Name, ev.Data)
			if err != nil {
				return err
			}
		}
	}
}

func (s *session) dispatch(ctx context.Context, raw string) {
	cmd := dispatch.Parse(raw)
	job := s.dispatcher.Dispatch(cmd)
	if job == nil {
		return
	}
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		finish := job(ctx)
		select {
		case s.finished <- finish:
		case <-ctx.Done():
			s.log.Debugw("dropping result of closed session", "Command", raw)
		}
	}()
}

func (s *session) write(ctx context.Context, event string, data any) error {
	msg, err := newMessage(event, data)
	if err != nil {
		s.log.Warnf("dropping event: %s", err)
		return nil
	}
	s.log.Debugw("sending event", "Event", event)
	return wsjson.Write(ctx, s.conn, msg)
}
