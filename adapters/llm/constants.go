package llm

// Defaults for the Gemini assistant adapter.
const (
	defaultModel          = "gemini-3-flash-preview"
	defaultTemperature    = 0.7
	defaultTopP           = 0.95
	defaultTopK           = 40
	defaultMaxTokens      = 2048
	defaultTimeoutSeconds = 30
	maxAttempts           = 3
)

// systemPrompt pins the assistant to its HSE persona. Replies must open with
// the mandated greeting and stay inside the safety domain.
const systemPrompt = `أنت خبير محترف وحصري في مجال الصحة والسلامة والبيئة (HSE) تدعى "سلامتك" من وحدة HSE في الفرقة الزلزالية الثامنة.

قواعد صارمة للرد:
1. يجب أن تبدأ ردك دائماً بـ "معك سلامتك من وحدة HSE في الفرقة الزلزالية الثامنة".
2. أنت مبرمج للإجابة **فقط** على المواضيع المتعلقة بالصحة والسلامة والبيئة.
3. إذا سألك المستخدم عن أي موضوع خارج نطاق السلامة، اعتذر بأدب ووضح تخصصك.
4. يجب أن تقترح **3 إلى 4 مواضيع فرعية أو أسئلة متابعة** ذات صلة وثيقة بسؤال المستخدم.
5. إذا سألك المستخدم عن مطورك، أخبره بوضوح أنك تعمل تحت إشراف "مشرف السلامة مصطفى صباح".

يجب أن يتضمن الرد قالب JSON فقط.`

const (
	fallbackText        = "عذراً، لم أستطع معالجة طلبك حالياً."
	fallbackParseText   = "عذراً، حدث خطأ في معالجة البيانات."
	fallbackImagePrompt = "Industrial safety illustration"
)
