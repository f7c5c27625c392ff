package roster

import "github.com/kozan-lab/landgain/internal/model"

// fallbackEntities is a small built-in roster of large TOPIX constituents,
// used when the weight workbook or the filer registry cannot be fetched.
var fallbackEntities = []model.EntityRef{
	{Code: "7203", Name: "トヨタ自動車", EDINETCode: "E02144"},
	{Code: "6758", Name: "ソニーグループ", EDINETCode: "E01777"},
	{Code: "8306", Name: "三菱UFJフィナンシャル・グループ", EDINETCode: "E03606"},
	{Code: "6861", Name: "キーエンス", EDINETCode: "E02390"},
	{Code: "9432", Name: "日本電信電話", EDINETCode: "E04430"},
	{Code: "9984", Name: "ソフトバンクグループ", EDINETCode: "E02778"},
	{Code: "6501", Name: "日立製作所", EDINETCode: "E01737"},
	{Code: "8035", Name: "東京エレクトロン", EDINETCode: "E02655"},
	{Code: "4063", Name: "信越化学工業", EDINETCode: "E00790"},
	{Code: "6902", Name: "デンソー", EDINETCode: "E01620"},
	{Code: "7741", Name: "HOYA", EDINETCode: "E02608"},
	{Code: "4519", Name: "中外製薬", EDINETCode: "E00942"},
	{Code: "9433", Name: "KDDI", EDINETCode: "E04425"},
	{Code: "8058", Name: "三菱商事", EDINETCode: "E02529"},
	{Code: "6367", Name: "ダイキン工業", EDINETCode: "E01576"},
	{Code: "4661", Name: "オリエンタルランド", EDINETCode: "E04719"},
	{Code: "7267", Name: "本田技研工業", EDINETCode: "E02166"},
	{Code: "4568", Name: "第一三共", EDINETCode: "E00939"},
	{Code: "8001", Name: "伊藤忠商事", EDINETCode: "E02513"},
	{Code: "6098", Name: "リクルートホールディングス", EDINETCode: "E31330"},
	{Code: "4746", Name: "東計電算", EDINETCode: "E05041"},
}

// fallbackRoster returns a copy of the built-in list, capped at limit.
func fallbackRoster(limit int) []model.EntityRef {
	n := len(fallbackEntities)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.EntityRef, n)
	copy(out, fallbackEntities[:n])
	return out
}
