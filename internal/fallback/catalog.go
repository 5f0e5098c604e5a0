// Package fallback holds the deterministic, industry-keyed copy used when
// the generator is unavailable or its output falls short.
package fallback

import (
	"fmt"
	"strings"

	"github.com/temcen/copyink/pkg/models"
)

type preset struct {
	hooks    []string
	ctas     []string
	hashtags []string
}

var presets = map[models.Industry]preset{
	models.IndustryCreator: {
		hooks: []string{
			"作品公開。制作の裏側を30秒で。",
			"Before→After、どっちが好き？",
			"この一手で仕上がりが変わる。",
			"3つのポイントで進行がラクに。",
			"今日の実績、サクッと置いときます。",
		},
		ctas: []string{
			"プロフィールのリンクからポートフォリオへ。",
			"DMで「相談」と送ってください。返信します。",
			"今週までのモニター募集、残り3枠。",
			"コメントに『知りたい』でOK。",
			"ストーリーのリンクから詳細へ。",
		},
		hashtags: []string{"#制作実績", "#クリエイター", "#デザイン", "#今日の作品", "#ポートフォリオ", "#依頼受付中"},
	},
	models.IndustrySalon: {
		hooks: []string{
			"空き枠、今日ご案内できます。",
			"はじめてでもムリなく続ける自己ケア。",
			"今週の推しメニューだけ書いておきます。",
			"雨の日こそ、ゆったりケア。",
			"迷ったらこのコース。失敗しない選び方。",
		},
		ctas: []string{
			"プロフィールの予約フォーム→『初回希望』と一言。",
			"DMで『相談』と送ってください。空き枠をご案内。",
			"今週まで特典あり。詳細はストーリー。",
			"リンクからメニュー一覧→そのまま予約。",
			"コメントで質問OK。すぐ返信。",
		},
		hashtags: []string{"#サロン", "#美容サロン", "#初回相談", "#今日の空き枠", "#ご褒美時間", "#ケア習慣"},
	},
	models.IndustryEC: {
		hooks: []string{
			"新作でました。まずは手に取ってほしい一品。",
			"再入荷。待ってくれてありがとう。",
			"3つのこだわり、短く話します。",
			"使うほど'好き'が増える理由。",
			"発送開始。週末に間に合います。",
		},
		ctas: []string{
			"プロフィールのリンク→商品ページへ。",
			"DMで商品名を送ってください。詳しく案内。",
			"今週まで送料無料。詳細はストーリー。",
			"再入荷通知は『通知希望』でOK。",
			"レビューは固定コメントにまとめました。",
		},
		hashtags: []string{"#ハンドメイド", "#EC", "#新作", "#再入荷", "#オンラインショップ", "#お迎え募集"},
	},
	models.IndustryLocal: {
		hooks: []string{
			"保存版。今週行けるスポット。",
			"子連れOK、助かった場所だけ。",
			"雨の日でも大丈夫な遊び場。",
			"今週の無料イベント、3つ厳選。",
			"知らないと損な制度、1分で。",
		},
		ctas: []string{
			"ストーリーのリンクから地図へ。",
			"DMで『地域情報』と送ると一覧を返信。",
			"コメントに質問どうぞ。現地の実感で答えます。",
			"保存して週末に見返してね。",
			"シェア歓迎。助かったら❤️で教えてください。",
		},
		hashtags: []string{"#地域ママ", "#おでかけ", "#週末情報", "#子連れOK", "#イベント情報", "#暮らしメモ"},
	},
	models.IndustryOther: {
		hooks: []string{
			"今日の情報、まとめておきます。",
			"知っておくと便利なこと。",
			"シンプルだけど効果的な方法。",
			"忘れがちだけど大切なポイント。",
			"短時間でできる改善策。",
		},
		ctas: []string{
			"詳細はプロフィールのリンクから。",
			"質問はDMでお気軽にどうぞ。",
			"コメントでご意見お聞かせください。",
			"保存して後で見返してくださいね。",
			"参考になったらシェアお願いします。",
		},
		hashtags: []string{"#情報", "#お知らせ", "#今日の投稿", "#参考情報", "#シェア", "#保存推奨"},
	},
}

var captionBodies = map[models.Length][]string{
	models.LengthShort: {
		"%sについて、簡潔にお伝えします。\n\n皆様のお役に立てる情報をお届けできるよう心がけています。",
		"%sのポイントを、ひとことでまとめました。\n\n気になったら気軽に声をかけてください。",
		"今日は%sのお話です。\n\n短く読めるので、保存しておくと便利です。",
	},
	models.LengthMid: {
		"%sについて、詳しくご説明します。\n\n日頃から多くの方にご質問をいただく内容ですので、今回まとめてお答えします。皆様のお役に立てる情報をお届けできるよう心がけています。\n\nご不明な点があれば、お気軽にお声がけください。",
		"%sで迷っている方へ。\n\nよくいただく相談をもとに、押さえておきたい点を順番に整理しました。読み終わる頃には、次に何をすればいいかが見えているはずです。\n\n気になる点はコメントで教えてください。",
		"最近よく聞かれる%sのこと。\n\n実際に寄せられた声をもとに、選び方と続け方のコツをまとめています。自分に合うやり方を見つけるヒントにしてください。\n\n質問はいつでも受け付けています。",
	},
	models.LengthLong: {
		"%sについて、詳しくご説明させていただきます。\n\n日頃から多くの方にご質問をいただく内容ですので、今回まとめてお答えします。\n\nこの内容については、これまでの経験と実績に基づいてお伝えしています。皆様のお役に立てる情報をお届けできるよう、常に新しい情報を集め、わかりやすくお伝えすることを心がけています。\n\n今後も皆様にとって価値のある情報発信を続けてまいります。ご不明な点があれば、いつでもお気軽にお声がけください。",
		"%sを始めたいけれど、何から手をつければいいかわからない。そんな声をよくいただきます。\n\nそこで今回は、最初に知っておきたい考え方から、続けるための小さな工夫まで、順を追ってまとめました。\n\nひとつずつ試しながら、自分のペースで取り入れてみてください。途中でつまずいても大丈夫です。よくあるつまずきポイントも一緒に紹介しています。\n\n読んでみて気になったことがあれば、コメントやDMで気軽に聞いてください。",
		"今日は%sについて、じっくりお話しします。\n\n普段の投稿では伝えきれなかった背景や、実際に取り組んでみてわかったことを、できるだけ具体的に書いてみました。\n\n人によって合うやり方は違います。だからこそ、いくつかの選択肢を並べて、それぞれの向き不向きも添えています。\n\n保存しておいて、必要なときに見返してもらえたら嬉しいです。感想もお待ちしています。",
	},
}

// genericBodies never mention the topic. They back up captionBodies when
// the topic itself cannot be published.
var genericBodies = map[models.Length][]string{
	models.LengthShort: {
		"今日のお知らせを、簡潔にお伝えします。\n\n皆様のお役に立てる情報をお届けできるよう心がけています。",
		"大事なポイントを、ひとことでまとめました。\n\n気になったら気軽に声をかけてください。",
		"今日はちょっとしたお話です。\n\n短く読めるので、保存しておくと便利です。",
	},
	models.LengthMid: {
		"よくいただくご質問に、まとめてお答えします。\n\n日頃から多くの方に聞かれる内容を整理しました。皆様のお役に立てる情報をお届けできるよう心がけています。\n\nご不明な点があれば、お気軽にお声がけください。",
		"迷っている方へ、押さえておきたい点を順番に整理しました。\n\nよくいただく相談をもとにしています。読み終わる頃には、次に何をすればいいかが見えているはずです。\n\n気になる点はコメントで教えてください。",
		"最近よく聞かれることをまとめました。\n\n実際に寄せられた声をもとに、選び方と続け方のコツを書いています。自分に合うやり方を見つけるヒントにしてください。\n\n質問はいつでも受け付けています。",
	},
	models.LengthLong: {
		"今日は、日頃から多くの方にご質問をいただく内容について、詳しくご説明させていただきます。\n\nこれまでの経験と実績に基づいて、できるだけわかりやすくまとめました。\n\n皆様のお役に立てる情報をお届けできるよう、常に新しい情報を集めることを心がけています。\n\n今後も価値のある情報発信を続けてまいります。ご不明な点があれば、いつでもお気軽にお声がけください。",
		"何から手をつければいいかわからない。そんな声をよくいただきます。\n\nそこで今回は、最初に知っておきたい考え方から、続けるための小さな工夫まで、順を追ってまとめました。\n\nひとつずつ試しながら、自分のペースで取り入れてみてください。よくあるつまずきポイントも一緒に紹介しています。\n\n読んでみて気になったことがあれば、コメントやDMで気軽に聞いてください。",
		"今日は、普段の投稿では伝えきれなかったことをじっくりお話しします。\n\n背景や、実際に取り組んでみてわかったことを、できるだけ具体的に書いてみました。\n\n人によって合うやり方は違います。だからこそ、いくつかの選択肢を並べて、それぞれの向き不向きも添えています。\n\n保存しておいて、必要なときに見返してもらえたら嬉しいです。感想もお待ちしています。",
	},
}

type replyVoice struct {
	label    string
	greeting string
	closing  string
}

var replyVoices = map[models.ReplyTone]replyVoice{
	models.ReplyTonePolite: {
		label:    "丁寧",
		greeting: "お問い合わせいただきありがとうございます。",
		closing:  "ご不明な点がございましたら、お気軽にお問い合わせください。\n\nよろしくお願いいたします。",
	},
	models.ReplyToneCasual: {
		label:    "カジュアル",
		greeting: "ありがとうございます！",
		closing:  "他にも気になることがあれば、いつでもお声がけくださいね。",
	},
	models.ReplyToneFirm: {
		label:    "きっぱり",
		greeting: "お問い合わせありがとうございます。",
		closing:  "その他ご質問がありましたらお知らせください。",
	},
}

// genericReplyBodies use nothing from the request.
var genericReplyBodies = []string{
	"内容を確認のうえ、担当より詳しくご案内いたします。",
	"ご予約やご質問は、プロフィールのリンクまたはDMから承っております。",
	"詳細は改めてご連絡いたしますので、少々お待ちください。",
}

// Catalog is read-only and safe for concurrent use.
type Catalog struct{}

func New() *Catalog {
	return &Catalog{}
}

func lookup(industry models.Industry) preset {
	return presets[industry.OrOther()]
}

// Items returns exactly req.ContentType.ContractSize() strings for hooks,
// CTAs and hashtags, and the texts of Captions and Replies for the
// structured types. Identical requests always yield identical output.
func (c *Catalog) Items(req models.GenerationRequest) []string {
	p := lookup(req.Industry)
	switch req.ContentType {
	case models.ContentTypeHook:
		return clone(p.hooks)
	case models.ContentTypeCTA:
		return clone(p.ctas)
	case models.ContentTypeHashtag:
		return clone(p.hashtags)
	case models.ContentTypeCaption:
		captions := c.Captions(req)
		texts := make([]string, len(captions))
		for i, caption := range captions {
			texts[i] = caption.Text
		}
		return texts
	case models.ContentTypeReply:
		replies := c.Replies(req)
		texts := make([]string, len(replies))
		for i, reply := range replies {
			texts[i] = reply.Text
		}
		return texts
	default:
		return nil
	}
}

// Captions builds three caption variants, each pairing a preset hook and
// CTA with a length-specific body about the topic.
func (c *Catalog) Captions(req models.GenerationRequest) []models.Caption {
	bodies := lengthBodies(captionBodies, req.Length)
	for i := range bodies {
		bodies[i] = fmt.Sprintf(bodies[i], req.Topic)
	}
	return buildCaptions(lookup(req.Industry), bodies)
}

// GenericCaptions is Captions without the topic. Its texts never repeat
// those of Captions.
func (c *Catalog) GenericCaptions(req models.GenerationRequest) []models.Caption {
	return buildCaptions(lookup(req.Industry), lengthBodies(genericBodies, req.Length))
}

func lengthBodies(table map[models.Length][]string, length models.Length) []string {
	bodies, ok := table[length]
	if !ok {
		bodies = table[models.LengthMid]
	}
	return clone(bodies)
}

func buildCaptions(p preset, bodies []string) []models.Caption {
	size := models.ContentTypeCaption.ContractSize()
	captions := make([]models.Caption, size)
	for i := 0; i < size; i++ {
		parts := models.CaptionParts{
			Hook:     p.hooks[i%len(p.hooks)],
			Body:     bodies[i%len(bodies)],
			CTA:      p.ctas[i%len(p.ctas)],
			Hashtags: clone(p.hashtags),
		}
		captions[i] = models.Caption{Text: ComposeCaption(parts), Parts: parts}
	}
	return captions
}

// Replies answers the inquiry with the business details the user gave.
func (c *Catalog) Replies(req models.GenerationRequest) []models.Reply {
	k := req.Knowledge
	name := k.BusinessName
	if name == "" {
		name = "当店"
	}
	reservation := k.ReservationInfo
	if reservation == "" {
		reservation = "お電話またはオンラインでご予約いただけます"
	}
	contact := "お気軽にご連絡"
	if k.BusinessHours != "" {
		contact = k.BusinessHours + "にお電話"
	}

	bodies := []string{
		fmt.Sprintf("「%s」についてのご質問ですね。\n\n%sでは、%sをご提供しております。", req.Inquiry, name, k.Services),
		fmt.Sprintf("%sについてお答えいたします。\n\n%s。", k.Services, reservation),
		fmt.Sprintf("%sの件でのお問い合わせですね。\n\n詳しくは%sください。", k.BusinessType, contact),
	}
	return buildReplies(req.ReplyTone, "パターン", bodies)
}

// GenericReplies carry nothing from the request.
func (c *Catalog) GenericReplies(req models.GenerationRequest) []models.Reply {
	return buildReplies(req.ReplyTone, "定型", genericReplyBodies)
}

func buildReplies(tone models.ReplyTone, kind string, bodies []string) []models.Reply {
	voice, ok := replyVoices[tone]
	if !ok {
		voice = replyVoices[models.ReplyTonePolite]
	}

	replies := make([]models.Reply, len(bodies))
	for i, body := range bodies {
		replies[i] = models.Reply{
			Style: fmt.Sprintf("%s（%s%d）", voice.label, kind, i+1),
			Text:  strings.Join([]string{voice.greeting, body, voice.closing}, "\n\n"),
		}
	}
	return replies
}

// ComposeCaption joins caption parts into the published text layout.
func ComposeCaption(parts models.CaptionParts) string {
	return strings.Join([]string{
		parts.Hook,
		parts.Body,
		parts.CTA,
		strings.Join(parts.Hashtags, " "),
	}, "\n\n")
}

func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
