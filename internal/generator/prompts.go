package generator

import (
	"fmt"
	"strings"

	"github.com/temcen/copyink/pkg/models"
)

// CaptionLengthRanges is the character range each caption length targets.
var CaptionLengthRanges = map[models.Length]string{
	models.LengthShort: "120-180字",
	models.LengthMid:   "200-350字",
	models.LengthLong:  "400-600字",
}

// HashtagDistribution is the general/category/niche mix asked of the model.
var HashtagDistribution = map[string]int{"general": 2, "category": 2, "niche": 2}

const hookPrompt = `あなたはSNSコピーライター。日本語で回答し、結果をJSON形式で出力してください。
目的:%s 業種:%s トーン:%s トピック:%s

要件:
- Hookを5つ。系統は[数字,質問,逆説,ギャップ,事実]を各1つ。
- 24〜48字。語尾の連続と同義反復は避ける。
- 誇大表現や断定的効果保証は使わない。
- トーンに応じた自然な日本語で。

JSON出力形式: {"hooks":["h1","h2","h3","h4","h5"]}`

const ctaPrompt = `あなたはSNSコピーライター。日本語で回答し、結果をJSON形式で出力してください。
目的:%s 導線:%s 期限:%s トピック:%s

要件:
- CTAを5つ。各文は「動詞+期限/条件+行き先(%s)」を含む。
- 35〜70字、受け身禁止、迷いを残さない。
- 誇大表現や断定的効果保証は使わない。
- 次のアクションが明確で実行しやすい。

出力形式: {"ctas":["c1","c2","c3","c4","c5"]}`

const hashtagPrompt = `あなたはSNSのハッシュタグ選定アシスタント。日本語で回答。
業種:%s トピック:%s

要件:
- ハッシュタグ6個。配合は[汎用2,カテゴリ2,ニッチ2]。本文とは別行前提。
- すべて半角#で正規化。重複・禁止語を避ける。
- 汎用：幅広く使える一般的なタグ
- カテゴリ：業種特有のタグ
- ニッチ：トピック特化のタグ

出力形式: {"hashtags":["#...","#...","#...","#...","#...","#..."]}`

const captionPrompt = `あなたはSNSコピーライター。日本語で回答し、結果をJSON形式で出力してください。
目的:%s 業種:%s トーン:%s トピック:%s 長さ:%s

要件:
- 3案。各案は Hook→本文→CTA→ハッシュタグ6個 の順で構成。
- CTAは「動詞+場所(プロフィール/DM/リンク/フォーム)+期限/条件」を含む。
- ハッシュタグは6個(汎用2/カテゴリ2/ニッチ2)。本文とは別行。
- 長さ: short=%s / mid=%s / long=%s。
- 誇大表現や断定的効果保証は使わない。
- トーンに応じた自然な日本語で。

出力形式:
{"captions":[
  {"text":"Hook\n\n本文\n\nCTA\n\n#tag1 #tag2 #tag3 #tag4 #tag5 #tag6","parts":{"hook":"...","body":"...","cta":"...","hashtags":["#...","#...","#...","#...","#...","#..."]}},
  {"text":"...","parts":{...}},
  {"text":"...","parts":{...}}
]}`

// ReplyToneInstructions describes each reply tone to the model.
var ReplyToneInstructions = map[models.ReplyTone]string{
	models.ReplyTonePolite: "丁寧で敬語を使った、プロフェッショナルな対応",
	models.ReplyToneCasual: "親しみやすく、親近感のある対応",
	models.ReplyToneFirm:   "簡潔で明確、要点を絞った対応",
}

const replyPrompt = `あなたは%sを営む「%s」のカスタマーサポート担当。日本語で回答し、結果をJSON形式で出力してください。

【事業情報】
%s
【対応指針】
- %sで回答する。
- 問い合わせ内容に対して適切で具体的な情報を提供する。
- 必要に応じて上記の事業情報を活用する。事業情報にないことは約束しない。
- 誇大表現や断定的効果保証は使わない。
- 3案はそれぞれ異なるアプローチで。styleには案の特徴を短く書く。

問い合わせ内容: %s

出力形式: {"replies":[{"style":"...","text":"..."},{"style":"...","text":"..."},{"style":"...","text":"..."}]}`

func businessFacts(k models.BusinessKnowledge) string {
	var b strings.Builder
	facts := []struct{ label, value string }{
		{"業種", k.BusinessType},
		{"店舗名", k.BusinessName},
		{"サービス・料金", k.Services},
		{"営業時間", k.BusinessHours},
		{"予約・アクセス", k.ReservationInfo},
		{"特徴・セールスポイント", k.Features},
		{"ウェブサイト", k.WebsiteURL},
	}
	for _, f := range facts {
		if f.value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f.label, f.value)
		}
	}
	return b.String()
}

// BuildPrompt renders the user prompt for a validated request.
func BuildPrompt(req models.GenerationRequest) (string, error) {
	switch req.ContentType {
	case models.ContentTypeHook:
		return fmt.Sprintf(hookPrompt, req.Goal, req.Industry, req.Tone, req.Topic), nil
	case models.ContentTypeCTA:
		return fmt.Sprintf(ctaPrompt, req.Goal, req.Path, req.Deadline, req.Topic, req.Path), nil
	case models.ContentTypeHashtag:
		return fmt.Sprintf(hashtagPrompt, req.Industry.OrOther(), req.Topic), nil
	case models.ContentTypeCaption:
		return fmt.Sprintf(captionPrompt, req.Goal, req.Industry, req.Tone, req.Topic, req.Length,
			CaptionLengthRanges[models.LengthShort],
			CaptionLengthRanges[models.LengthMid],
			CaptionLengthRanges[models.LengthLong],
		), nil
	case models.ContentTypeReply:
		name := req.Knowledge.BusinessName
		if name == "" {
			name = "当店"
		}
		return fmt.Sprintf(replyPrompt, req.Knowledge.BusinessType, name,
			businessFacts(req.Knowledge), ReplyToneInstructions[req.ReplyTone], req.Inquiry), nil
	default:
		return "", fmt.Errorf("no prompt for content type %q", req.ContentType)
	}
}
