// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// usersテーブルは外部システムの所有物で、本サービスは参照とパスワード更新のみを行う。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PasswordResetCode はメール送信したパスワードリセット用の6桁コードを表す。
type PasswordResetCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired は指定時刻の時点でコードが期限切れかどうかを返す。
func (c *PasswordResetCode) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
