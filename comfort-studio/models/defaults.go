package models

func defaultProfile(ct ContentType) *Profile {
	switch ct {
	case DailyComfort:
		return &Profile{
			DurationSeconds: 180,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 15},
				{Name: "main", Seconds: 130},
				{Name: "outro", Seconds: 35},
			},
			MaxTokens:   800,
			Temperature: 0.7,
			Tags:        []string{"위로", "힐링", "일상위로", "자존감", "자기계발", "루틴"},
			Topics: []string{
				"자존감을 높이는 방법", "힘든 순간을 이겨내는 법", "일상의 작은 기쁨",
				"자신을 사랑하는 방법", "마음의 평화를 찾는 법", "새로운 시작의 용기",
				"스트레스 해소법", "감사함을 느끼는 법", "외로움을 극복하는 법",
				"자신감을 키우는 방법", "실패 후 다시 일어서는 법", "변화에 적응하는 법",
				"불안감을 다루는 법", "우울한 기분을 이겨내는 법", "새로운 환경에서 견뎌내는 법",
			},
		}
	case HealingSound:
		return &Profile{
			DurationSeconds: 360,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 10},
				{Name: "main", Weight: 1},
				{Name: "outro", Seconds: 10},
			},
			MaxTokens:   800,
			Temperature: 0.7,
			Tags:        []string{"힐링사운드", "자연음", "ASMR", "명상", "자존감", "수면", "불면증"},
			Topics:      []string{"빗소리", "바람소리", "숲속소리", "파도소리", "새소리", "계곡물소리", "불꽃소리", "바다파도소리"},
		}
	case OvercomeStory:
		return &Profile{
			DurationSeconds: 360,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 15},
				{Name: "main", Weight: 1},
				{Name: "outro", Seconds: 10},
			},
			MaxTokens:   1000,
			Temperature: 0.7,
			Tags:        []string{"극복스토리", "동기부여", "희망", "자존감", "용기"},
			Topics: []string{
				"우울증 극복", "불안장애 극복", "트라우마 극복", "수면장애 극복",
				"이별 극복", "가족갈등 극복", "직장갈등 극복", "외로움 극복",
				"실직 극복", "번아웃 극복", "창업 실패 극복", "시험 실패 극복",
				"질병 극복", "사고 후 회복", "금연 극복", "운동 습관 형성",
				"빚 갚기", "투자 실패 극복", "저축 습관 형성", "소비 습관 개선",
			},
		}
	case CustomComfort:
		return &Profile{
			DurationSeconds: 240,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 10},
				{Name: "main", Weight: 1},
				{Name: "outro", Seconds: 10},
			},
			MaxTokens:   700,
			Temperature: 0.8,
			Tags:        []string{"맞춤위로", "상황별위로", "자존감", "실용적위로", "감정공감"},
			Topics: []string{
				"우울할 때", "불안할 때", "외로울 때", "지칠 때",
				"이별했을 때", "오해받았을 때", "비교당할 때", "실패했을 때",
				"번아웃", "시험 실패", "미래에 대한 불안", "아플 때",
				"수면 부족", "돈이 부족할 때", "아침에 일어나기 힘들 때", "주말이 끝날 때",
			},
		}
	case OneLineChallenge:
		return &Profile{
			DurationSeconds: 240,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 15},
				{Name: "main", Weight: 1},
				{Name: "outro", Seconds: 10},
			},
			MaxTokens:   800,
			Temperature: 0.8,
			Tags:        []string{"한줄위로", "챌린지", "댓글위로", "공감", "커뮤니티"},
			Topics: []string{
				"오늘의 기분", "힘든 순간", "감사한 일", "희망의 메시지",
				"자신을 위한 말", "아침 인사", "밤 인사", "월요일 응원",
				"시험 전날", "면접 전날", "자존감 향상", "자기 사랑",
				"용기 부여", "가족", "친구", "꿈과 목표",
			},
		}
	default:
		return &Profile{
			DurationSeconds: 180,
			Segments: []SegmentConfig{
				{Name: "intro", Seconds: 15},
				{Name: "main", Weight: 1},
				{Name: "outro", Seconds: 10},
			},
			MaxTokens:   800,
			Temperature: 0.7,
		}
	}
}
