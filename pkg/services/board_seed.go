package services

import "socialfeed/pkg/model"

var boardSeed = []struct {
	post  model.BoardPost
	likes int
}{
	{
		post: model.BoardPost{
			ID:        0,
			Author:    "김의료",
			Title:     "[질병 정보] 고혈압 환자 식단 관리 팁 공유해요",
			Content:   "안녕하세요. 고혈압 진단받고 식단 관리 중인 3년차 환자입니다. 짠 음식을 줄이는 게 정말 중요한데, 저염식을 맛있게 만드는 몇 가지 팁을 공유하고 싶어요. 먼저...",
			CreatedAt: "2025-08-15 10:00:00",
		},
		likes: 15,
	},
	{
		post: model.BoardPost{
			ID:        1,
			Author:    "익명",
			Title:     "[치료 후기] 강남세브란스병원 암 수술 후기입니다",
			Content:   "얼마 전 강남세브란스에서 위암 수술을 받았습니다. 수술 전후 과정이 궁금하실 분들을 위해 상세한 후기를 남겨봅니다. 입원부터 퇴원까지 전반적으로...",
			CreatedAt: "2025-08-16 14:30:00",
		},
		likes: 28,
	},
	{
		post: model.BoardPost{
			ID:        2,
			Author:    "박간호",
			Title:     "[일상 공유] 입원 중 소소한 행복 찾기",
			Content:   "병원에 오래 있다 보면 답답할 때가 많죠. 저는 작은 화분을 키우거나, 창가에서 좋아하는 음악을 들으며 기분 전환을 해요. 여러분은 어떤 방법으로 힘든 시간을 이겨내시나요?",
			CreatedAt: "2025-08-17 09:15:00",
		},
		likes: 5,
	},
}
