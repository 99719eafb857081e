// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/authgate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	// メールアドレスは呼び出し側で正規化済みであること。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスの一意制約に違反した場合はDUPLICATE_EMAILのAPIErrorを返す。
	// 事前のFindByEmailチェックは同時登録に対して競合しうるため、
	// ストレージ層の制約違反の検出が最終的な守りとなる。
	Create(ctx context.Context, user *model.User) error

	// SetActive はユーザーの有効フラグを更新する。
	// 無効化フローは現状APIとして公開していないが、is_activeは可変である必要がある。
	SetActive(ctx context.Context, id string, active bool) error
}
