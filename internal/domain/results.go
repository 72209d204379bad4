package domain

type AnalysisResults struct {
	ValidatedDOB string     `json:"validated_dob"`
	Age          Age        `json:"age"`
	Zodiac       Zodiac     `json:"zodiac"`
	Numerology   Numerology `json:"numerology"`
	DayInfo      DayInfo    `json:"day_info"`
	FunFacts     FunFacts   `json:"fun_facts"`
}

type Age struct {
	Years   int   `json:"years"`
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
}

type Zodiac struct {
	Western string `json:"western"`
	Chinese string `json:"chinese"`
}

type Numerology struct {
	LifePath int `json:"life_path"`
}

type DayInfo struct {
	DayOfWeek string `json:"day_of_week"`
	DayNumber int    `json:"day_number"`
}

type FunFacts struct {
	DaysToNextBirthday  int   `json:"days_to_next_birthday"`
	EstimatedHeartbeats int64 `json:"estimated_heartbeats"`
	// LunarCyclesLived arrives as a float (days / 29.5 floored server side).
	LunarCyclesLived   float64 `json:"lunar_cycles_lived"`
	SeasonsExperienced int     `json:"seasons_experienced"`
}
