package app

import "strings"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun は全アカウントを1回実行することを示す。
	CommandRun Command = "run"
	// CommandWorker は定期実行と運用HTTPサーバーで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandPrune は古い台帳エントリを削除することを示す。
	CommandPrune Command = "prune"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandUnknown はサポート外のサブコマンドを示す。
	CommandUnknown Command = ""
)

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空、または先頭がフラグの場合はCommandRunを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandRun, nil
	}
	if strings.HasPrefix(args[0], "-") {
		return CommandRun, args
	}

	switch args[0] {
	case "run":
		return CommandRun, args[1:]
	case "worker":
		return CommandWorker, args[1:]
	case "migrate":
		return CommandMigrate, args[1:]
	case "prune":
		return CommandPrune, args[1:]
	case "healthcheck":
		return CommandHealthcheck, args[1:]
	default:
		return CommandUnknown, args[1:]
	}
}
