package app

// Command はアプリケーションの起動モード。
type Command string

const (
	// CommandServe はAPIサーバーモード。
	CommandServe Command = "serve"
	// CommandWorker は定期ジョブモード
	// （セッション清掃・favicon更新・資金整合性監査）。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーママイグレーションの適用。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はコンテナ用の軽量ヘルスチェック。
	CommandHealthcheck Command = "healthcheck"
)

var knownCommands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand は先頭引数をサブコマンドとして解釈する。
// 未指定または未知のコマンドはserveにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
