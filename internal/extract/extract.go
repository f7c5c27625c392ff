// Package extract pulls structured property records out of the equipment
// section text of an annual report using the Anthropic API.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/claude"
)

const truncationMarker = "... (以下省略)"

const systemPrompt = `あなたは有価証券報告書の「設備の状況」セクションから不動産情報を抽出する専門家です。

与えられたテキストから、企業が保有または賃借する不動産(土地・建物)を抽出し、以下のJSON形式のみで回答してください。説明文は不要です。

{
  "properties": [
    {
      "name": "事業所・施設名",
      "type": "自社保有 または 賃貸",
      "address": "所在地(都道府県から番地まで)",
      "land_area_sqm": 土地面積(平方メートル、数値、不明ならnull),
      "building_area_sqm": 建物面積(平方メートル、数値、不明ならnull),
      "book_value_million_yen": 帳簿価額(百万円、数値、不明ならnull),
      "purpose": "用途(本社、工場、営業所など)",
      "notes": "補足事項"
    }
  ],
  "total_land_book_value_million_yen": 土地の帳簿価額合計(数値、不明ならnull),
  "total_building_book_value_million_yen": 建物の帳簿価額合計(数値、不明ならnull),
  "extraction_notes": "抽出に関する注記"
}

注意事項:
- 土地を自社保有する物件は type を「自社保有」、賃借物件は「賃貸」とする
- 面積・金額は数値のみ(単位や桁区切りを含めない)
- 記載のない項目は null とする
- 不動産の記載が全くない場合は properties を空配列とする`

// Result is the parsed extraction output.
type Result struct {
	Properties         []model.PropertyRecord
	TotalLandBookMYen  *float64
	TotalBuildBookMYen *float64
	Notes              string
}

// Extractor runs the extraction prompt against a model.
type Extractor struct {
	client       claude.Client
	model        string
	maxTokens    int64
	maxInputRune int
}

// NewExtractor builds an Extractor. maxInputRune bounds how much section text
// is sent to the model; longer inputs are truncated head-first with a marker.
func NewExtractor(client claude.Client, modelID string, maxTokens int64, maxInputRune int) *Extractor {
	return &Extractor{
		client:       client,
		model:        modelID,
		maxTokens:    maxTokens,
		maxInputRune: maxInputRune,
	}
}

// rawResponse mirrors the JSON the prompt asks for.
type rawResponse struct {
	Properties []struct {
		Name            string   `json:"name"`
		Type            string   `json:"type"`
		Address         string   `json:"address"`
		LandAreaSqm     *float64 `json:"land_area_sqm"`
		BuildingAreaSqm *float64 `json:"building_area_sqm"`
		BookValueMYen   *float64 `json:"book_value_million_yen"`
		Purpose         string   `json:"purpose"`
		Notes           string   `json:"notes"`
	} `json:"properties"`
	TotalLandBookMYen  *float64 `json:"total_land_book_value_million_yen"`
	TotalBuildBookMYen *float64 `json:"total_building_book_value_million_yen"`
	ExtractionNotes    string   `json:"extraction_notes"`
}

// Extract sends the section text to the model, tagged with the entity name
// so the model can tell the filer's own facilities from tenants', and parses
// the structured response. An empty properties list is a valid result, not
// an error; only a response that cannot be decoded against the schema fails.
func (e *Extractor) Extract(ctx context.Context, entityName, sectionText string) (*Result, error) {
	input := truncate(sectionText, e.maxInputRune)
	if entityName != "" {
		input = "企業名: " + entityName + "\n\n" + input
	}

	resp, err := e.client.CreateMessage(ctx, claude.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    systemPrompt,
		Messages: []claude.Message{
			{Role: "user", Content: input},
		},
	})
	if err != nil {
		return nil, model.NewExternalServiceError("anthropic", err)
	}
	resp.Usage.LogCost(e.model, "extract")

	answer := cleanJSON(resp.Text())

	var raw rawResponse
	dec := json.NewDecoder(strings.NewReader(answer))
	if err := dec.Decode(&raw); err != nil {
		return nil, model.NewSchemaError(eris.Wrap(err, "decode extraction response"), resp.Text())
	}

	result := &Result{
		TotalLandBookMYen:  raw.TotalLandBookMYen,
		TotalBuildBookMYen: raw.TotalBuildBookMYen,
		Notes:              raw.ExtractionNotes,
	}
	for _, p := range raw.Properties {
		result.Properties = append(result.Properties, model.PropertyRecord{
			Name:            p.Name,
			Ownership:       mapOwnership(p.Type),
			Address:         p.Address,
			LandAreaSqm:     p.LandAreaSqm,
			BuildingAreaSqm: p.BuildingAreaSqm,
			BookValueMYen:   p.BookValueMYen,
			Purpose:         p.Purpose,
			Notes:           p.Notes,
		})
	}

	zap.L().Info("extract: parsed properties",
		zap.Int("count", len(result.Properties)),
		zap.String("model", e.model))
	return result, nil
}

// mapOwnership maps the prompt's Japanese ownership labels to the domain
// enum. Unknown labels default to owned so they are at least priced.
func mapOwnership(typ string) model.Ownership {
	if strings.Contains(typ, "賃") {
		return model.OwnershipLeased
	}
	return model.OwnershipOwned
}

// truncate keeps the first limit runes and appends a marker so the model
// knows the text was cut.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "\n" + truncationMarker
}

// cleanJSON unwraps a model answer down to its JSON payload: fenced blocks
// first, then the outermost braces.
func cleanJSON(answer string) string {
	answer = strings.TrimSpace(answer)

	if strings.HasPrefix(answer, "```") {
		answer = strings.TrimPrefix(answer, "```json")
		answer = strings.TrimPrefix(answer, "```")
		if idx := strings.LastIndex(answer, "```"); idx >= 0 {
			answer = answer[:idx]
		}
		return strings.TrimSpace(answer)
	}

	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start >= 0 && end > start {
		return answer[start : end+1]
	}
	return answer
}
