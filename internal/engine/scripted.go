package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"monger-backend/internal/model"
)

// ScriptedEngine is a deterministic keyword backend for local development and
// tests. It runs the same collection order as the persona without an LLM:
// affirmation, size, phrase, then shipping and email once checkout starts.
type ScriptedEngine struct{}

func NewScriptedEngine() *ScriptedEngine {
	return &ScriptedEngine{}
}

var affirmationWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true,
	"okay": true, "fine": true, "absolutely": true, "definitely": true,
	"i want one": true, "i want a shirt": true, "deal": true,
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

func (e *ScriptedEngine) Reply(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()
	input := strings.ToLower(strings.TrimSpace(req.UserInput))

	out := TurnResult{
		Collected: req.Collected,
		Checkout:  req.Checkout,
		Mood:      "neutral",
	}

	if req.CheckoutMode {
		e.collectShipping(input, req.UserInput, &out)
	} else {
		e.collectOrder(input, req.UserInput, &out)
	}

	out.ReadyForCheckout = out.Collected.Complete()
	out.ReadyForPayment = req.CheckoutMode && out.Checkout.Complete()
	if out.ReadyForPayment {
		out.Mood = "warm"
	}

	observeCall("chat", start, nil)
	recordCall(time.Since(start), nil)
	return out, nil
}

func (e *ScriptedEngine) collectOrder(input, raw string, out *TurnResult) {
	if !out.Collected.HasAffirmation {
		if affirmationWords[input] || strings.HasPrefix(input, "yes") {
			out.Collected.HasAffirmation = true
			out.Reply = "good.  what size."
			return
		}
		out.Reply = "you want a shirt or not."
		out.Mood = "suspicious"
		return
	}

	if out.Collected.Size == "" {
		if size := model.NormalizeSize(input); size != "" {
			out.Collected.Size = size
			out.Reply = "what do you want it to say."
			return
		}
		out.Reply = "sizes are xs s m l xl 2xl.  pick one."
		out.Mood = "uneasy"
		return
	}

	if out.Collected.Phrase == "" {
		phrase := model.ClampPhrase(raw)
		if phrase == "" {
			out.Reply = "it has to say something."
			return
		}
		out.Collected.Phrase = phrase
		out.Reply = fmt.Sprintf("\"%s\".  fine.  say checkout when you're ready.", phrase)
		out.Mood = "warm"
		return
	}

	out.Reply = "we're done here.  say checkout."
}

func (e *ScriptedEngine) collectShipping(input, raw string, out *TurnResult) {
	trimmed := strings.TrimSpace(raw)
	s := &out.Checkout.Shipping

	switch {
	case s.Name == "":
		s.Name = trimmed
		out.Reply = "street address."
	case s.Line1 == "":
		s.Line1 = trimmed
		out.Reply = "city."
	case s.City == "":
		s.City = trimmed
		out.Reply = "state."
	case s.State == "":
		s.State = trimmed
		out.Reply = "zip."
	case s.Zip == "":
		s.Zip = trimmed
		out.Reply = "email."
	case out.Checkout.Email == "":
		if m := emailPattern.FindString(raw); m != "" {
			out.Checkout.Email = strings.ToLower(m)
			out.Reply = "that's everything.  pay up."
		} else {
			out.Reply = "that's not an email."
			out.Mood = "uneasy"
		}
	default:
		out.Reply = "pay up."
	}

	if s.Country == "" {
		s.Country = "US"
	}
	if trimmed == "" && out.Reply == "" {
		out.Reply = "say that again."
	}
}

func (e *ScriptedEngine) OpeningLine(ctx context.Context, customer CustomerSummary) (string, error) {
	switch {
	case customer.IsTimeWaster:
		return "you again.  no browsing this time.", nil
	case customer.ReferralStatus == "ultra" || customer.ReferralStatus == "vip":
		return "a friend of a friend.  alright, come in.", nil
	case customer.TotalShirtsBought >= 5:
		return "back again.  you know the drill.", nil
	case customer.IsRepeatBuyer:
		return "i remember you.  buying or not.", nil
	default:
		return "shirts.  you buying or browsing.", nil
	}
}

func (e *ScriptedEngine) ReferralLine(ctx context.Context, tier string, discount int) (string, error) {
	switch tier {
	case "ultra":
		return fmt.Sprintf("THAT name.  %d percent off, and i never said that.", discount), nil
	case "vip":
		return fmt.Sprintf("a good customer.  %d off, don't spread it around.", discount), nil
	case "buyer":
		return fmt.Sprintf("i know them.  %d off.", discount), nil
	default:
		return "never heard of them.", nil
	}
}

func (e *ScriptedEngine) Health(ctx context.Context) (Health, error) {
	return Health{Status: HealthOK, Model: "scripted"}, nil
}
