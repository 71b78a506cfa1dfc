package httpclient

import (
	"net/http"
	"net/url"

	"WinamaxFeed/internal/config"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// NewWebsocketDialer 录制器使用的 websocket Dialer（支持代理、握手超时、permessage-deflate）
func NewWebsocketDialer(cfg config.RecorderConfig, logger *logrus.Logger) *websocket.Dialer {
	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	// 配置代理
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			dialer.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", cfg.Proxy).Info("websocket 已配置代理")
		}
	}
	return dialer
}

// RequestHeader 握手请求头：Origin、User-Agent 以及配置中的额外头
func RequestHeader(cfg config.RecorderConfig) http.Header {
	header := http.Header{}
	if cfg.Origin != "" {
		header.Set("Origin", cfg.Origin)
	}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return header
}
