// Package metrics はPrometheus形式のメトリクス収集と公開を提供する。
//
// レジストリはインスタンスごとに独立しており、テストで複数生成しても衝突しない。
package metrics
