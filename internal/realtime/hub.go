package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nao1215/nobiasmedia/pkg/event"
)

const (
	// writeWait はメッセージ書き込みのタイムアウト。
	writeWait = 10 * time.Second
	// pongWait はクライアントからのpongを待つ時間。
	pongWait = 60 * time.Second
	// pingPeriod はpingの送信間隔。pongWaitより短くする必要がある。
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize はクライアントから受け付けるメッセージの最大サイズ。
	maxMessageSize = 512
	// defaultSendBuffer はクライアントごとの送信バッファのデフォルト長。
	defaultSendBuffer = 16
)

// Hub はWebSocketクライアントを管理し、イベントを全クライアントに配信する。
type Hub struct {
	// upgrader はHTTP接続をWebSocketに昇格させる。
	upgrader websocket.Upgrader
	// mu はclientsとclosedを保護する。
	mu sync.RWMutex
	// clients は接続中のクライアント。
	clients map[*client]struct{}
	// closed はClose済みかどうか。
	closed bool
	// sendBuffer はクライアントごとの送信バッファ長。
	sendBuffer int
	// onCountChange は接続数が変化したときに呼ばれる。
	onCountChange func(int)
}

// client は1つのWebSocket接続。
type client struct {
	// conn はWebSocket接続。
	conn *websocket.Conn
	// send は送信待ちのメッセージ。
	send chan []byte
	// done は切断時にcloseされる。
	done chan struct{}
}

// Option はHubの設定を変更する関数。
type Option func(*Hub)

// WithSendBuffer はクライアントごとの送信バッファ長を変更する。
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithClientCountHook は接続数の変化を通知する関数を設定する。
func WithClientCountHook(fn func(int)) Option {
	return func(h *Hub) { h.onCountChange = fn }
}

// NewHub は新しいHubを生成する。
// allowedOriginsに含まれないOriginからの接続は拒否する。"*" は全て許可する。
// Originヘッダーのない接続（モバイルアプリ等）は許可する。
func NewHub(allowedOrigins []string, opts ...Option) *Hub {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}
	_, allowAll := originsSet["*"]

	h := &Hub{
		clients:    make(map[*client]struct{}),
		sendBuffer: defaultSendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			_, ok := originsSet[origin]
			return ok
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP はWebSocket接続を受け付け、クライアントとして登録する。
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "realtime hub is closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeがエラーレスポンスを書き込み済み
		log.Printf("[Realtime] WebSocketへの昇格に失敗: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast はイベントを全クライアントの送信バッファに積む。呼び出し元をブロックしない。
// バッファが満杯のクライアントにはこのイベントを配信しない。
func (h *Hub) Broadcast(e *event.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Printf("[Realtime] イベントのシリアライズに失敗: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("[Realtime] 送信バッファが満杯のためイベントを破棄しました: %s", c.conn.RemoteAddr())
		}
	}
}

// ClientCount は接続中のクライアント数を返す。
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close は全クライアントを切断し、以降の接続を拒否する。
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.done)
		_ = c.conn.Close()
	}
	h.notifyCount(0)
}

// register はクライアントを登録する。Close済みの場合はfalseを返す。
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.notifyCount(n)
	return true
}

// unregister はクライアントの登録を解除して接続を閉じる。複数回呼ばれても安全。
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	close(c.done)
	_ = c.conn.Close()
	h.notifyCount(n)
}

// notifyCount は接続数の変化をフックに通知する。
func (h *Hub) notifyCount(n int) {
	if h.onCountChange != nil {
		h.onCountChange(n)
	}
}

// readPump はクライアントからのメッセージを読み捨て、切断を検知する。
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Realtime] 予期しない切断: %v", err)
			}
			return
		}
	}
}

// writePump は送信バッファのメッセージとpingをクライアントに書き込む。
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
