package models

import (
	"regexp"
	"time"
)

type ContentType string

const (
	ContentTypeHook    ContentType = "hook"
	ContentTypeCTA     ContentType = "cta"
	ContentTypeHashtag ContentType = "hashtag"
	ContentTypeCaption ContentType = "caption"
	ContentTypeReply   ContentType = "reply"
)

// ContractSize is the exact number of items a result of this type carries.
func (ct ContentType) ContractSize() int {
	switch ct {
	case ContentTypeHook, ContentTypeCTA:
		return 5
	case ContentTypeHashtag:
		return 6
	case ContentTypeCaption, ContentTypeReply:
		return 3
	default:
		return 0
	}
}

// Endpoint is the rate-limit key and the plural JSON field of the response.
func (ct ContentType) Endpoint() string {
	switch ct {
	case ContentTypeHook:
		return "hooks"
	case ContentTypeCTA:
		return "ctas"
	case ContentTypeHashtag:
		return "hashtags"
	case ContentTypeCaption:
		return "captions"
	case ContentTypeReply:
		return "replies"
	default:
		return ""
	}
}

func (ct ContentType) Valid() bool {
	return ct.ContractSize() > 0
}

type Goal string

const (
	GoalAwareness  Goal = "認知"
	GoalSave       Goal = "保存"
	GoalConversion Goal = "CV"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalAwareness, GoalSave, GoalConversion:
		return true
	}
	return false
}

type Industry string

const (
	IndustryCreator Industry = "creator"
	IndustrySalon   Industry = "salon"
	IndustryEC      Industry = "ec"
	IndustryLocal   Industry = "local"
	IndustryOther   Industry = "other"
)

// Industries lists every industry in catalog order.
var Industries = []Industry{IndustryCreator, IndustrySalon, IndustryEC, IndustryLocal, IndustryOther}

func (i Industry) Valid() bool {
	switch i {
	case IndustryCreator, IndustrySalon, IndustryEC, IndustryLocal, IndustryOther:
		return true
	}
	return false
}

// OrOther returns IndustryOther for empty or unknown values.
func (i Industry) OrOther() Industry {
	if i.Valid() {
		return i
	}
	return IndustryOther
}

type Tone string

const (
	ToneFriendly Tone = "フレンドリー"
	ToneExpert   Tone = "専門家"
	ToneEmotive  Tone = "エモい"
	ToneDecisive Tone = "きっぱり"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneExpert, ToneEmotive, ToneDecisive:
		return true
	}
	return false
}

// Path is where a CTA sends the reader.
type Path string

const (
	PathProfile Path = "プロフィール"
	PathLink    Path = "リンク"
	PathDM      Path = "DM"
	PathForm    Path = "フォーム"
)

func (p Path) Valid() bool {
	switch p {
	case PathProfile, PathLink, PathDM, PathForm:
		return true
	}
	return false
}

type Length string

const (
	LengthShort Length = "short"
	LengthMid   Length = "mid"
	LengthLong  Length = "long"
)

func (l Length) Valid() bool {
	switch l {
	case LengthShort, LengthMid, LengthLong:
		return true
	}
	return false
}

// ReplyTone is the register of an inquiry reply.
type ReplyTone string

const (
	ReplyTonePolite ReplyTone = "polite"
	ReplyToneCasual ReplyTone = "casual"
	ReplyToneFirm   ReplyTone = "firm"
)

func (t ReplyTone) Valid() bool {
	switch t {
	case ReplyTonePolite, ReplyToneCasual, ReplyToneFirm:
		return true
	}
	return false
}

// BusinessKnowledge is what the account owner tells us about their
// business so replies can answer with real details.
type BusinessKnowledge struct {
	BusinessType    string `json:"businessType" validate:"required,max=100"`
	BusinessName    string `json:"businessName,omitempty" validate:"omitempty,max=100"`
	Services        string `json:"services" validate:"required,max=500"`
	BusinessHours   string `json:"businessHours,omitempty" validate:"omitempty,max=200"`
	ReservationInfo string `json:"reservationInfo,omitempty" validate:"omitempty,max=200"`
	Features        string `json:"features,omitempty" validate:"omitempty,max=500"`
	WebsiteURL      string `json:"websiteUrl,omitempty" validate:"omitempty,url,max=200"`
}

const (
	DeadlineNone     = "なし"
	DeadlineThisWeek = "今週中"
)

var deadlineDatePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)

// ValidDeadline accepts the two fixed deadlines or a YYYY/MM/DD date.
func ValidDeadline(deadline string) bool {
	if deadline == DeadlineNone || deadline == DeadlineThisWeek {
		return true
	}
	if !deadlineDatePattern.MatchString(deadline) {
		return false
	}
	_, err := time.Parse("2006/01/02", deadline)
	return err == nil
}

// GenerationRequest carries every field any content type may need. Which
// fields are required depends on ContentType, see RequiredFields.
type GenerationRequest struct {
	ContentType ContentType `json:"-"`
	Goal        Goal        `json:"goal,omitempty" validate:"required,goal"`
	Industry    Industry    `json:"industry,omitempty" validate:"required,industry"`
	Tone        Tone        `json:"tone,omitempty" validate:"required,tone"`
	Topic       string      `json:"topic" validate:"required,min=1,max=100"`
	Path        Path        `json:"path,omitempty" validate:"required,path"`
	Deadline    string      `json:"deadline,omitempty" validate:"required,deadline"`
	Length      Length      `json:"length,omitempty" validate:"required,length"`

	Inquiry   string            `json:"inquiry,omitempty" validate:"required,max=1000"`
	ReplyTone ReplyTone         `json:"replyTone,omitempty" validate:"required,reply_tone"`
	Knowledge BusinessKnowledge `json:"userKnowledge"`
}

// RequiredFields returns the struct fields validated for the request's
// content type. Industry is optional for CTAs but checked when present.
func (r GenerationRequest) RequiredFields() []string {
	switch r.ContentType {
	case ContentTypeHook:
		return []string{"Goal", "Industry", "Tone", "Topic"}
	case ContentTypeCTA:
		fields := []string{"Goal", "Path", "Deadline", "Topic"}
		if r.Industry != "" {
			fields = append(fields, "Industry")
		}
		return fields
	case ContentTypeHashtag:
		return []string{"Industry", "Topic"}
	case ContentTypeCaption:
		return []string{"Goal", "Industry", "Tone", "Topic", "Length"}
	case ContentTypeReply:
		return []string{
			"Inquiry", "ReplyTone",
			"Knowledge.BusinessType", "Knowledge.BusinessName", "Knowledge.Services",
			"Knowledge.BusinessHours", "Knowledge.ReservationInfo", "Knowledge.Features",
			"Knowledge.WebsiteURL",
		}
	default:
		return nil
	}
}

type Source string

const (
	SourceGenerated          Source = "generated"
	SourceFallback           Source = "fallback"
	SourceFallbackAfterError Source = "fallback_after_error"
)

type CaptionParts struct {
	Hook     string   `json:"hook"`
	Body     string   `json:"body"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}

type Caption struct {
	Text  string       `json:"text"`
	Parts CaptionParts `json:"parts"`
}

type Reply struct {
	Style string `json:"style"`
	Text  string `json:"text"`
}

type Diagnostics struct {
	FilteredCount     int    `json:"filtered_count"`
	DuplicateCount    int    `json:"duplicate_count"`
	BackfilledCount   int    `json:"backfilled_count"`
	Attempts          int    `json:"attempts,omitempty"`
	Error             string `json:"error,omitempty"`
	QuotaCommitFailed bool   `json:"quota_commit_failed,omitempty"`
}

// GenerationResult always holds exactly ContentType.ContractSize() items.
// For captions and replies Items holds the texts, parallel to Captions or
// Replies.
type GenerationResult struct {
	ContentType ContentType `json:"content_type"`
	Items       []string    `json:"items"`
	Captions    []Caption   `json:"captions,omitempty"`
	Replies     []Reply     `json:"replies,omitempty"`
	Source      Source      `json:"source"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// UsageEvent is published after a generation has been counted.
type UsageEvent struct {
	EventID         string      `json:"event_id"`
	UserID          string      `json:"user_id"`
	ContentType     ContentType `json:"content_type"`
	Industry        Industry    `json:"industry,omitempty"`
	Source          Source      `json:"source"`
	FilteredCount   int         `json:"filtered_count"`
	BackfilledCount int         `json:"backfilled_count"`
	QuotaCommitted  bool        `json:"quota_committed"`
	Timestamp       time.Time   `json:"timestamp"`
}
