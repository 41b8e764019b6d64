package model

type GetMissionsRequest struct{}

type GetMissionsResponse struct {
	Missions []Mission `json:"missions"`
}

type GetMyMissionsRequest struct{}

type GetMyMissionsResponse struct {
	Missions    []Mission `json:"missions"`
	PowerPoints int64     `json:"power_points"`
}

type CompleteMissionRequest struct {
	MissionKey string `json:"mission_key"`
}

type CompleteMissionResponse struct {
	Mission Mission `json:"mission"`
}
