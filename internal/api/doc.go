// Package api はnobiasmediaのHTTP APIサーバーを提供する。
//
// 管理者ログインとGoogleサインインによる認証、記事のCRUDとページング付き一覧、
// ソース種別の管理を担当する。セッションはhttp-only Cookieのアクセストークンで運ぶ。
// 記事が作成されると、注入されたNotifierを通じてnewArticleイベントを配信する。
package api
