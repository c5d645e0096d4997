// Package config は環境変数からAPIサーバーの設定を読み込む。
package config
