// Package route は認証状態とパスから表示する画面を決めるルートガードを提供する。
package route

import (
	"strings"

	"github.com/hitoshi/kudos/internal/model"
)

// Surface は表示する画面の系統。
type Surface string

const (
	// SurfaceAuth はサインイン・サインアップ画面。
	SurfaceAuth Surface = "auth"
	// SurfaceApp は認証済みユーザー向けのメイン画面。
	SurfaceApp Surface = "app"
)

// Page はメイン画面内のページ名。
type Page string

const (
	PageAuth           Page = "auth"
	PageLeaderboard    Page = "leaderboard"
	PageFeed           Page = "feed"
	PageGiveCompliment Page = "give-compliment"
	PageConfessionRoom Page = "confession-room"
	PageProfile        Page = "profile"
)

// appPages は認証済みのときにそのまま表示するパス。
var appPages = map[string]Page{
	model.PathRoot:           PageLeaderboard,
	model.PathFeed:           PageFeed,
	model.PathGiveCompliment: PageGiveCompliment,
	model.PathConfessionRoom: PageConfessionRoom,
	model.PathProfile:        PageProfile,
}

// Decision はルートガードの判定結果。
// RedirectToが空でなければ、そのパスへ履歴を置き換えて遷移する。
type Decision struct {
	Surface    Surface
	Page       Page
	Path       string
	RedirectTo string
}

// Redirected は遷移が必要かを返す。
func (d Decision) Redirected() bool {
	return d.RedirectTo != ""
}

// RouteFor は認証状態とパスから表示する画面を決める。
//   - 未認証: /authはそのまま表示し、それ以外は/authへ遷移する
//   - 認証済み: 既知のパスはそのまま表示し、/authと未知のパスは/feedへ遷移する
func RouteFor(authenticated bool, path string) Decision {
	path = normalize(path)

	if !authenticated {
		d := Decision{Surface: SurfaceAuth, Page: PageAuth, Path: model.PathAuth}
		if path != model.PathAuth {
			d.RedirectTo = model.PathAuth
		}
		return d
	}

	if page, ok := appPages[path]; ok {
		return Decision{Surface: SurfaceApp, Page: page, Path: path}
	}
	return Decision{
		Surface:    SurfaceApp,
		Page:       PageFeed,
		Path:       model.PathFeed,
		RedirectTo: model.PathFeed,
	}
}

// normalize はクエリとフラグメントを除き、末尾のスラッシュを取り除く。
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return model.PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = model.PathRoot
		}
	}
	return path
}
