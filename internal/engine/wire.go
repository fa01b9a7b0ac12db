package engine

// Wire shapes for the dialogue sidecar HTTP contract. The sidecar speaks
// snake_case JSON; pointers keep "null" distinguishable from "empty".

type chatRequest struct {
	UserInput           string      `json:"user_input"`
	Context             chatContext `json:"context"`
	ConversationHistory []Message   `json:"conversation_history"`
}

type chatContext struct {
	TotalShirtsBought int               `json:"total_shirts_bought"`
	IsRepeatBuyer     bool              `json:"is_repeat_buyer"`
	CurrentState      wireCurrentState  `json:"current_state"`
	HasReferral       bool              `json:"has_referral"`
	ReferrerEmail     string            `json:"referrer_email,omitempty"`
	IsCheckoutMode    bool              `json:"is_checkout_mode"`
	CheckoutState     wireCheckoutState `json:"checkout_state"`
}

type wireCurrentState struct {
	HasAffirmation bool    `json:"has_affirmation"`
	Size           *string `json:"size"`
	Phrase         *string `json:"phrase"`
}

type wireShipping struct {
	Name    *string `json:"name"`
	Line1   *string `json:"line1"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Zip     *string `json:"zip"`
	Country *string `json:"country"`
}

type wireCheckoutState struct {
	Shipping wireShipping `json:"shipping"`
	Email    *string      `json:"email"`
}

type wireState struct {
	HasAffirmation     bool              `json:"has_affirmation"`
	Size               *string           `json:"size"`
	Phrase             *string           `json:"phrase"`
	ReadyForCheckout   bool              `json:"ready_for_checkout"`
	ReadyForPayment    bool              `json:"ready_for_payment"`
	Mood               string            `json:"mood"`
	WantsReferralCheck *string           `json:"wants_referral_check"`
	Checkout           wireCheckoutState `json:"checkout"`
}

type chatResponse struct {
	Reply string    `json:"reply"`
	State wireState `json:"state"`
}

type openingLineRequest struct {
	TotalShirtsBought int    `json:"total_shirts_bought"`
	IsTimeWaster      bool   `json:"is_time_waster"`
	ReferralStatus    string `json:"referral_status,omitempty"`
}

type lineResponse struct {
	Line string `json:"line"`
}

type referralLineRequest struct {
	Status             string `json:"status"`
	DiscountPercentage int    `json:"discount_percentage"`
}

type healthResponse struct {
	Status       string `json:"status"`
	LLMProvider  string `json:"llm_provider"`
	LLMOK        bool   `json:"llm_ok"`
	LLMModel     string `json:"llm_model"`
	LLMLatencyMS int64  `json:"llm_latency_ms"`
	Error        string `json:"error"`
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toWireCheckout(c wireCheckoutIn) wireCheckoutState {
	return wireCheckoutState{
		Shipping: wireShipping{
			Name:    stringPtr(c.Name),
			Line1:   stringPtr(c.Line1),
			City:    stringPtr(c.City),
			State:   stringPtr(c.State),
			Zip:     stringPtr(c.Zip),
			Country: stringPtr(c.Country),
		},
		Email: stringPtr(c.Email),
	}
}

// wireCheckoutIn flattens the model checkout for conversion.
type wireCheckoutIn struct {
	Name, Line1, City, State, Zip, Country, Email string
}
