package listener

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"WinamaxFeed/internal/config"
	"WinamaxFeed/internal/interfaces"
	"WinamaxFeed/internal/model"
	"WinamaxFeed/internal/repository"
	"WinamaxFeed/internal/utils/httpclient"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Engine.IO v3 心跳帧
const (
	engineIOPing = "2"
	engineIOPong = "3"
)

// FeedSubscriber 直接连接 Socket.IO websocket，按到达顺序记录每一帧，
// 定期把完整日志原子写入快照文件并发布给查询服务。
type FeedSubscriber struct {
	cfg       config.RecorderConfig
	path      string
	dialer    *websocket.Dialer
	publisher interfaces.SnapshotPublisher
	logger    *logrus.Logger
	limiter   *rate.Limiter

	mu     sync.Mutex
	events []model.RawEvent
	dirty  bool
}

// NewFeedSubscriber 创建录制器；path 为快照文件路径
func NewFeedSubscriber(cfg config.RecorderConfig, path string, publisher interfaces.SnapshotPublisher, logger *logrus.Logger) *FeedSubscriber {
	limit := rate.Inf
	if cfg.ReconnectDelay > 0 {
		limit = rate.Every(cfg.ReconnectDelay)
	}
	return &FeedSubscriber{
		cfg:       cfg,
		path:      path,
		dialer:    httpclient.NewWebsocketDialer(cfg, logger),
		publisher: publisher,
		logger:    logger,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Run 连接并录制直到 ctx 结束；断线后按 reconnect_delay 限速重连。退出前会再落盘一次。
func (s *FeedSubscriber) Run(ctx context.Context) error {
	if s.cfg.URL == "" {
		return errors.New("recorder.url 未配置")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.flushLoop(ctx) })
	g.Go(func() error { return s.connectLoop(ctx) })
	return g.Wait()
}

func (s *FeedSubscriber) connectLoop(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.logger.WithError(err).WithField("url", s.cfg.URL).Warn("websocket 会话结束，准备重连")
		}
	}
}

// session 一次连接的生命周期：握手 -> 发送 connect_frames -> 读循环
func (s *FeedSubscriber) session(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, httpclient.RequestHeader(s.cfg))
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket 握手失败(status=%d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket 连接失败: %w", err)
	}
	w := &connWriter{conn: conn}
	defer conn.Close()

	s.logger.WithField("url", s.cfg.URL).Info("websocket 已连接")
	s.record(model.EventWebsocketOpen, map[string]any{"url": s.cfg.URL})

	for _, frame := range s.cfg.ConnectFrames {
		if err := w.text(frame); err != nil {
			return fmt.Errorf("发送连接帧失败: %w", err)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.close(websocket.CloseNormalClosure, "recorder stopped")
			_ = conn.Close()
		case <-done:
		}
	}()
	if s.cfg.PingInterval > 0 {
		go s.pingLoop(w, done)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			code, reason := websocket.CloseAbnormalClosure, err.Error()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, reason = closeErr.Code, closeErr.Text
			} else if ctx.Err() != nil {
				code, reason = websocket.CloseNormalClosure, "recorder stopped"
			}
			s.record(model.EventWebsocketClose, map[string]any{"code": code, "reason": reason})
			return err
		}

		raw := string(msg)
		s.record(model.EventWebsocketMessage, map[string]any{"raw": raw})
		if raw == engineIOPing {
			if err := w.text(engineIOPong); err != nil {
				s.logger.WithError(err).Debug("回复心跳失败")
			}
		}
	}
}

// pingLoop 客户端主动心跳
func (s *FeedSubscriber) pingLoop(w *connWriter, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := w.text(engineIOPing); err != nil {
				s.logger.WithError(err).Debug("发送心跳失败")
				return
			}
		}
	}
}

func (s *FeedSubscriber) flushLoop(ctx context.Context) error {
	interval := s.cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				s.logger.WithError(err).Error("退出前写入快照失败")
			}
			return nil
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.WithError(err).WithField("path", s.path).Warn("写入快照失败")
			}
		}
	}
}

// Flush 有新事件时写入快照文件并发布
func (s *FeedSubscriber) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	events := slices.Clone(s.events)
	s.dirty = false
	s.mu.Unlock()

	snap := &model.Snapshot{
		URL:          s.cfg.PageURL,
		Timestamp:    time.Now().Format(time.RFC3339Nano),
		MessageCount: len(events),
		Messages:     events,
	}
	if err := repository.SaveSnapshotFile(s.path, snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	s.publisher.Publish(snap)
	s.logger.WithFields(logrus.Fields{"path": s.path, "messages": len(events)}).Debug("快照已写入")
	return nil
}

func (s *FeedSubscriber) record(event string, data any) {
	ev, err := model.NewRawEvent(time.Now(), event, data)
	if err != nil {
		s.logger.WithError(err).WithField("event", event).Warn("记录事件失败")
		return
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.dirty = true
	s.mu.Unlock()
}

// connWriter 串行化对同一连接的写操作
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) text(frame string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (w *connWriter) close(code int, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
