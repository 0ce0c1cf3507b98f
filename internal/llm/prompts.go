package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"cardlab-backend/internal/models"
)

// Prompt templates for the three oracle stages. The pipeline never trusts
// these to be honored; the validator downstream is authoritative.

const systemExtraction = `역할: 한국사 학습용 사실/연표 추출기
출력: JSON만, 주석/설명 금지
스키마:
{
  "entities":[string,...],
  "facts":[{"type":"fact","statement":string},...],
  "timeline":[{"year":int,"label":string},...],
  "triples":[{"subject":string,"predicate":string,"object":string},...]
}
규칙:
- facts는 "type","statement"만. statement는 원문 발췌·요약 단문.
- timeline.year=int, label=짧은 사건 설명.
- triples 최소 3개(가능하다면). subject는 entities 중 하나.
- 하이라이트가 주어졌을 때:
  • entities = 하이라이트만 그대로 사용(순서 유지, 추가/가공 금지).
  • 하이라이트가 1개일 때: facts는 하이라이트 토큰을 포함하는 문장 1개만 포함.
  • timeline = [].
  • triples 0~2개로 최소화.`

const systemGenerationMin = `역할: 요청된 카드 '한 종류'만 1개 생성한다.
출력은 JSON만. { "cards":[{...}] } 형식.
금지: 불필요 키/장문/추측. facts 외 창작 금지.
facts가 1개뿐이어도 요청된 카드 1개를 생성해야 한다.
공통 제약: 질문<=60자, 보기<=12자, 해설<=1문장(<=20단어), 배열 길이 3~4.
특수 제약(타입별):
- MCQ:
  • 보기 수=정확히 4, 정답=1개.
  • 보기 간 의미/형태 중복 금지(동의어, 별칭, 철자 변형, 약어 포함).
  • 정답은 facts.entities에서 추출하여 정확한 용어를 사용할 것.
  • answer_index는 반드시 options 내 정확한 정답을 가리켜야 함.
  • options[answer_index]와 explain에 언급된 정답이 일치해야 함.
  • 부자연스러운 질문 형식 금지: "X는 무엇인가?", "X란?".
- SHORT:
  • answer는 entities 중 하나여야 하며 문장/서술 금지. rubric.aliases는 answer의 동의어만.
  • prompt 안에 answer 문자열(정확히 일치)이 포함되면 안 된다.
- OX: statement는 명확한 진술문. 질문 형태 금지.
- CLOZE: {{c1}},{{c2}}로만 가리고 clozes 값은 단어/구만.
- ORDER: 오직 facts.timeline만 사용. items는 label(24자 이내, 최대 4개), answer_order는 연대순 인덱스.
- MATCH: 좌=고유명사, 우=특징/용도 명사구(문장·문장부호 금지, 길이≤20자), pairs 인덱스.`

const systemGeneration = `역할: 문항 생성기
출력: {"cards":[...]} JSON만
제약:
- 질문 ≤60자, 보기 ≤12자, 해설 ≤20단어
- MCQ: options 4개, answer_index 0~3, 보기 간 동의어/별칭/형태변환 중복 금지
- SHORT: answer는 entities 중 1개, 문장 금지
- OX: 명확한 진술만 (질문형 금지)
- CLOZE: {{c1}},{{c2}}로만 가리고 clozes 값은 단어/구만
- ORDER: timeline 순서만 사용
- MATCH: 좌=고유명사, 우=업적/역할, pairs 인덱스
- facts가 1개뿐이어도 요청된 카드 1개는 반드시 생성`

const systemFix = `역할: '보정기'.
주어진 오류만 최소 변경으로 수정.
스키마 엄수(4지선다, CLOZE placeholder 일치, ORDER 순열 등).
JSON {"cards":[...]}만 출력.`

func userExtraction(content string, highlights []string) string {
	highlightsJSON, _ := json.Marshal(highlights)

	var b strings.Builder
	b.WriteString("다음 본문과 하이라이트에서 entities, facts, timeline, triples를 추출하라.\n\n")
	b.WriteString("요구사항(엄수):\n")
	b.WriteString(`- facts 배열의 각 원소는 {"type":"fact","statement":"..."} 형태만 허용. 다른 키 금지.` + "\n")
	b.WriteString("- statement는 원문에서 직접 발췌/요약한 단문(한 문장).\n")
	b.WriteString(`- timeline: {"year":정수, "label":"사건 설명"} 형식.` + "\n")
	b.WriteString(`- triples: {"subject":"...","predicate":"...","object":"..."} 형식. subject는 entities 중 하나.` + "\n")
	b.WriteString(`- 오직 JSON 객체 하나만 출력: {"entities":[], "facts":[], "timeline":[], "triples":[]}.` + "\n")
	if len(highlights) > 0 {
		b.WriteString("- 하이라이트가 비어있지 않으므로: entities는 하이라이트만 그대로 사용(순서 유지), timeline은 빈 배열.\n")
	}
	b.WriteString("\n본문:\n<<CONTENT_START>>")
	b.WriteString(content)
	b.WriteString("<<CONTENT_END>>\n\n하이라이트:\n")
	b.Write(highlightsJSON)
	return b.String()
}

func userGenerationOne(facts models.FactSet, cardType models.CardType, difficulty string) string {
	factsJSON, _ := json.Marshal(facts)

	var b strings.Builder
	b.WriteString("facts: ")
	b.Write(factsJSON)
	b.WriteString(fmt.Sprintf("\n요청: 카드 1개(type=%q), 난이도=%s.\n", string(cardType), difficulty))
	b.WriteString(`JSON만 출력: {"cards":[...]}.`)

	// CLOZE answers drift into invented placeholders without an explicit
	// candidate pool, so list the only values the oracle may blank out.
	if cardType == models.CardCloze {
		if candidates := clozePromptCandidates(facts); len(candidates) > 0 {
			b.WriteString("\n\n[CLOZE candidates] ")
			b.WriteString(strings.Join(candidates, ", "))
			b.WriteString("\n규칙: 위 후보들에서만 정답을 고른다. '정답1', 'xxx', 'placeholder' 같은 임의 값 금지.")
		}
	}
	return b.String()
}

func userGenerationBatch(facts models.FactSet, types []models.CardType, difficulty string) string {
	factsJSON, _ := json.Marshal(facts)
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	typesJSON, _ := json.Marshal(names)

	var b strings.Builder
	b.WriteString("facts: ")
	b.Write(factsJSON)
	b.WriteString("\ntypes: ")
	b.Write(typesJSON)
	b.WriteString("\ndifficulty: ")
	b.WriteString(difficulty)
	b.WriteString("\n위 제약을 지켜 {\"cards\":[...]} 만 출력.")
	return b.String()
}

func userFix(cards []models.Card, errs []models.ValidationError) string {
	cardsJSON, _ := json.Marshal(map[string]interface{}{"cards": cards})
	errsJSON, _ := json.Marshal(errs)

	var b strings.Builder
	b.WriteString("cards: ")
	b.Write(cardsJSON)
	b.WriteString("\nerrors: ")
	b.Write(errsJSON)
	b.WriteString("\n오류에 해당하는 필드만 수정해 {\"cards\":[...]}만 출력.")
	return b.String()
}

func clozePromptCandidates(facts models.FactSet) []string {
	seen := map[string]bool{}
	var candidates []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] || len(candidates) >= 10 {
			return
		}
		seen[v] = true
		candidates = append(candidates, v)
	}
	for _, f := range facts.Facts {
		add(f.Statement)
	}
	for _, e := range facts.Entities {
		add(e)
	}
	return candidates
}
