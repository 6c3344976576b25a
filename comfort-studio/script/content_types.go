package script

import (
	"context"
	"fmt"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/timeline"
)

// DailyComfortGenerator writes the three minute daily comfort letter
type DailyComfortGenerator struct{ base }

func (g *DailyComfortGenerator) Generate(ctx context.Context, topic string) (*models.ContentRecord, error) {
	return g.generate(ctx, topic, g)
}

func (g *DailyComfortGenerator) prompt(topic string, tl timeline.Timeline) string {
	return fmt.Sprintf(`"%[1]s"을 주제로 "오늘의 위로" 내레이션을 작성해주세요.

콘텐츠 구조:
1. 인트로 (%[2]d초): 오늘 하루를 보낸 시청자에게 건네는 짧은 인사
2. 본문 (%[3]d초): 6-8개 단락으로 이어지는 위로 글귀
3. 아웃트로 (%[4]d초): 내일을 응원하는 마무리 인사

요구사항:
1. %[1]s에 대한 공감과 구체적인 위로
2. 약 %[5]d자 분량
3. 자존감 향상에 초점을 둔 따뜻한 말투
4. 시청자가 오늘 바로 해볼 수 있는 작은 실천 하나`,
		topic, seconds(tl, "intro"), seconds(tl, "main"), seconds(tl, "outro"), targetChars(tl))
}

func (g *DailyComfortGenerator) title(topic string) string {
	return "오늘의 위로: " + topic
}

func (g *DailyComfortGenerator) fallback(topic string) string {
	return fmt.Sprintf(`오늘 하루도 정말 수고 많으셨습니다. %s, 쉽지 않은 일이라는 것을 압니다.

지금 느끼는 마음은 잘못된 것이 아닙니다. 누구나 그런 날이 있고, 그 마음을 알아차린 것만으로도 당신은 충분히 잘하고 있습니다.

오늘은 스스로에게 작은 칭찬 하나를 건네보세요. 내일의 당신은 오늘보다 조금 더 가벼워질 거예요.`, topic)
}

// HealingSoundGenerator writes short comfort lines to lay over a nature sound
type HealingSoundGenerator struct{ base }

func (g *HealingSoundGenerator) Generate(ctx context.Context, topic string) (*models.ContentRecord, error) {
	return g.generate(ctx, topic, g)
}

func (g *HealingSoundGenerator) prompt(topic string, tl timeline.Timeline) string {
	return fmt.Sprintf(`%[1]s와 함께 들을 수 있는 "힐링 사운드 + 멘트" 콘텐츠를 작성해주세요.

콘텐츠 구조:
1. 인트로 (%[2]d초): "오늘은 %[1]s와 함께, 위로의 시간을 준비했습니다."
2. 위로 멘트 (%[3]d초 동안 간격을 두고): 짧은 멘트 3-4개, 각각 한 단락
3. 아웃트로 (%[4]d초): "오늘도 수고 많았습니다. 편안한 밤 되세요."

요구사항:
1. %[1]s의 특징을 살린 편안한 내레이션
2. 자연스러운 호흡 가이드 포함
3. 약 %[5]d자 분량
4. 불면증, 불안, 긴장 완화에 도움이 되는 명상적인 내용`,
		topic, seconds(tl, "intro"), seconds(tl, "main"), seconds(tl, "outro"), targetChars(tl)/2)
}

func (g *HealingSoundGenerator) title(topic string) string {
	return topic + "와 함께하는 힐링 시간"
}

func (g *HealingSoundGenerator) fallback(topic string) string {
	return fmt.Sprintf("%s 소리를 들으며 편안하게 호흡해보세요. 모든 걱정을 내려놓고 지금 이 순간에 집중해보세요. 당신은 이미 충분히 훌륭합니다.", topic)
}

// OvercomeStoryGenerator writes a first person recovery story
type OvercomeStoryGenerator struct{ base }

func (g *OvercomeStoryGenerator) Generate(ctx context.Context, topic string) (*models.ContentRecord, error) {
	return g.generate(ctx, topic, g)
}

func (g *OvercomeStoryGenerator) prompt(topic string, tl timeline.Timeline) string {
	return fmt.Sprintf(`%[1]s를 극복한 사람의 이야기를 "극복 스토리" 형식으로 작성해주세요.

콘텐츠 구조:
1. 인트로 (%[2]d초): "오늘의 극복 스토리: %[1]s"
2. 본문 (%[3]d초): 문제 상황, 단계별 극복 과정, 극복 후의 변화, 시청자에게 전하는 희망의 메시지
3. 아웃트로 (%[4]d초): "당신도 충분히 할 수 있습니다"

요구사항:
1. 실제 경험처럼 현실적이고 공감할 수 있는 이야기
2. 구체적이고 실용적인 극복 방법
3. 약 %[5]d자 분량
4. 희망적이지만 과장되지 않은 인터뷰 톤`,
		topic, seconds(tl, "intro"), seconds(tl, "main"), seconds(tl, "outro"), targetChars(tl))
}

func (g *OvercomeStoryGenerator) title(topic string) string {
	return "극복 스토리: " + topic
}

func (g *OvercomeStoryGenerator) fallback(topic string) string {
	return fmt.Sprintf("%s를 극복한 한 사람의 이야기입니다. 처음에는 모든 것이 어려워 보였지만, 작은 변화부터 시작해서 결국 극복할 수 있었습니다. 당신도 충분히 할 수 있습니다.", topic)
}

// CustomComfortGenerator writes comfort for one specific situation
type CustomComfortGenerator struct{ base }

func (g *CustomComfortGenerator) Generate(ctx context.Context, topic string) (*models.ContentRecord, error) {
	return g.generate(ctx, topic, g)
}

func (g *CustomComfortGenerator) prompt(topic string, tl timeline.Timeline) string {
	return fmt.Sprintf(`%[1]s에 대한 "맞춤형 위로" 콘텐츠를 작성해주세요.

콘텐츠 구조:
1. 인트로 (%[2]d초): "오늘은 %[1]s에 대한 위로를 준비했습니다."
2. 본문 (%[3]d초): 상황 공감, 상황에 특화된 위로와 조언, 즉시 해볼 수 있는 실천 방법
3. 아웃트로 (%[4]d초): "이 순간도 지나갑니다"

요구사항:
1. %[1]s에 특화된 구체적이고 실용적인 위로
2. 감정적 공감과 실용적 해결책의 균형
3. 약 %[5]d자 분량
4. 따뜻하고 현실적인 톤`,
		topic, seconds(tl, "intro"), seconds(tl, "main"), seconds(tl, "outro"), targetChars(tl))
}

func (g *CustomComfortGenerator) title(topic string) string {
	return "맞춤형 위로: " + topic
}

func (g *CustomComfortGenerator) fallback(topic string) string {
	return fmt.Sprintf("%s에 대해 이해합니다. 이런 순간은 누구에게나 찾아오는 자연스러운 일입니다. 당신의 감정을 인정하고, 작은 변화부터 시작해보세요. 모든 것은 시간이 해결해줄 것입니다.", topic)
}

// OneLineChallengeGenerator writes the community one-line comfort challenge
type OneLineChallengeGenerator struct{ base }

func (g *OneLineChallengeGenerator) Generate(ctx context.Context, topic string) (*models.ContentRecord, error) {
	return g.generate(ctx, topic, g)
}

func (g *OneLineChallengeGenerator) prompt(topic string, tl timeline.Timeline) string {
	return fmt.Sprintf(`%[1]s에 대한 "한 줄 위로 챌린지" 콘텐츠를 작성해주세요.

콘텐츠 구조:
1. 인트로 (%[2]d초): "오늘의 한 줄 위로 챌린지: %[1]s" + 참여 안내
2. 본문 (%[3]d초): 챌린지 소개, 실제 댓글처럼 자연스러운 한 줄 위로 10-15개 소개, 다음 챌린지 안내
3. 아웃트로 (%[4]d초): "당신의 한 줄도 누군가에게 위로가 됩니다"

요구사항:
1. 다양한 연령대와 상황을 아우르는 포용적인 메시지
2. 시청자가 댓글로 참여하고 싶어지는 구성
3. 약 %[5]d자 분량`,
		topic, seconds(tl, "intro"), seconds(tl, "main"), seconds(tl, "outro"), targetChars(tl))
}

func (g *OneLineChallengeGenerator) title(topic string) string {
	return "한 줄 위로 챌린지: " + topic
}

func (g *OneLineChallengeGenerator) fallback(topic string) string {
	return fmt.Sprintf("%s에 대한 한 줄 위로를 댓글로 남겨주세요. 당신의 한 줄이 누군가에게 큰 위로가 될 수 있습니다. 함께 위로의 힘을 나누어봐요!", topic)
}
