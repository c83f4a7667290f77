// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割（投資家またはプロジェクトオーナー）を表す。
type Role string

const (
	// RoleInvestor は投資家ロール。プロジェクトへの投資が可能。
	RoleInvestor Role = "investor"
	// RoleOwner はプロジェクトオーナーロール。プロジェクトの作成・管理が可能。
	RoleOwner Role = "owner"
	// RoleNone はロール未解決状態を表す。
	// プロフィール未作成またはロール取得中の一時的な状態であり、エラーではない。
	RoleNone Role = ""
)

// IsValid はロールがサポート対象の値かを検証する。
func (r Role) IsValid() bool {
	return r == RoleInvestor || r == RoleOwner
}

// Identity は認証プロバイダーが発行した認証済みプリンシパルを表す。
// サインアウトまたはアプリ終了までの読み取り専用キャッシュとして保持される。
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Profile はアプリケーションレベルのユーザープロフィールを表す。
// サインアップ時に1回だけ作成され、以降は不変（編集パスは存在しない）。
// Identityと1対1で対応し、UIDをキーとする。
type Profile struct {
	UID          string
	Email        string
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// Identity はプロフィールから認証済みプリンシパル表現を導出する。
func (p *Profile) Identity() *Identity {
	return &Identity{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UID       string
	ExpiresAt time.Time
	CreatedAt time.Time
}
