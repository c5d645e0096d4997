// Package realtime は接続中のクライアントへイベントをプッシュするWebSocketハブを提供する。
//
// 配信はベストエフォートであり、送信バッファが詰まったクライアントや
// 切断中のクライアントに対するイベントは破棄される。
package realtime
