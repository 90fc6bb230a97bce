package biz

import "github.com/kart-io/voicedesk/internal/model"

// FunctionClass 是函数调用的业务类别。
type FunctionClass int

const (
	// ClassOther 只回显参数。
	ClassOther FunctionClass = iota
	// ClassSuggestion 返回固定的引导语，并附带知识库建议。
	ClassSuggestion
	// ClassConfirmation 创建 pending 工单。
	ClassConfirmation
	// ClassBooking 创建 booked 工单。
	ClassBooking
)

func (c FunctionClass) String() string {
	switch c {
	case ClassSuggestion:
		return "suggestion"
	case ClassConfirmation:
		return "confirmation"
	case ClassBooking:
		return "booking"
	default:
		return "other"
	}
}

// VerticalFunctions 是一个行业的助手函数及建议类应答。
type VerticalFunctions struct {
	Suggest      string
	Confirm      string
	Book         string
	SuggestReply string
}

var broadwayFunctions = VerticalFunctions{
	Suggest:      "suggestShows",
	Confirm:      "confirmDetails",
	Book:         "bookTickets",
	SuggestReply: "You can see the upcoming shows on the screen. Select which ones you want to choose.",
}

var catalog = map[model.Vertical]VerticalFunctions{
	model.VerticalBroadway: broadwayFunctions,
	model.VerticalHotel: {
		Suggest:      "suggestHotels",
		Confirm:      "confirmReservationDetails",
		Book:         "bookRoom",
		SuggestReply: "You can see the available hotels on the screen. Select the one you would like to book.",
	},
	model.VerticalMarketing: {
		Suggest:      "suggestCampaigns",
		Confirm:      "confirmCampaignDetails",
		Book:         "launchCampaign",
		SuggestReply: "You can see the suggested campaigns on the screen. Select the ones you want to explore.",
	},
}

// FunctionsFor 返回行业的函数集合；events 与 other 使用 broadway 的函数。
func FunctionsFor(v model.Vertical) VerticalFunctions {
	if f, ok := catalog[v]; ok {
		return f
	}
	return broadwayFunctions
}

// Classify 在全部行业中查找函数名，返回类别和所属函数集合。
// 函数名在各行业之间不重复。
func Classify(name string) (FunctionClass, VerticalFunctions) {
	for _, f := range catalog {
		switch name {
		case f.Suggest:
			return ClassSuggestion, f
		case f.Confirm:
			return ClassConfirmation, f
		case f.Book:
			return ClassBooking, f
		}
	}
	return ClassOther, VerticalFunctions{}
}
