package database

// 月次締めのコアテーブル。マイグレーションではなく起動時のbootstrapで存在確認・作成する。
const (
	// TableSelection は選択中の年月を保持するシングルトンテーブル名。
	TableSelection = "selecionado"
	// TableClosing は月次締めテーブル名。
	TableClosing = "fechamento_mensal"
)

// SelectionDDL はselecionadoテーブルの定義。
const SelectionDDL = `
CREATE TABLE IF NOT EXISTS selecionado (
	id  BIGSERIAL PRIMARY KEY,
	ano INT NOT NULL,
	mes INT NOT NULL CHECK (mes BETWEEN 1 AND 12),
	CONSTRAINT unique_ano_mes UNIQUE (ano, mes)
)`

// ClosingDDL はfechamento_mensalテーブルの定義。
// valores_diariosは [{"day": n, "value": v}, ...] 形式のJSON配列。
const ClosingDDL = `
CREATE TABLE IF NOT EXISTS fechamento_mensal (
	id               BIGSERIAL PRIMARY KEY,
	ano              INT NOT NULL,
	mes              INT NOT NULL CHECK (mes BETWEEN 1 AND 12),
	dias_trabalhados INT NOT NULL DEFAULT 0,
	meta_maxima      NUMERIC(10, 2) NOT NULL DEFAULT 0.00,
	meta_minima      NUMERIC(10, 2) NOT NULL DEFAULT 0.00,
	valores_diarios  JSONB NOT NULL DEFAULT '[]'::jsonb,
	soma_valores     NUMERIC(12, 2) NOT NULL DEFAULT 0.00,
	CONSTRAINT unique_fechamento_ano_mes UNIQUE (ano, mes)
)`

// CoreTable はbootstrapが作成を保証するテーブルの名前とDDLの組。
type CoreTable struct {
	Name string
	DDL  string
}

// CoreTables はbootstrapが作成順に処理するテーブル一覧を返す。
func CoreTables() []CoreTable {
	return []CoreTable{
		{Name: TableSelection, DDL: SelectionDDL},
		{Name: TableClosing, DDL: ClosingDDL},
	}
}
