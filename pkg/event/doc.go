// Package event はリアルタイム通知で配信するイベントの型を定義する。
package event
