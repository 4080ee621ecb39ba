package extract

import (
	"fmt"
	"sort"
	"strings"

	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/models"
)

const extractionSystemPrompt = `You are an expert financial analyst AI tasked with extracting structured data from financial statements published on the Jamaica Stock Exchange (JSE). You always respond with a single JSON object and nothing else.`

const evaluationSystemPrompt = `You are a meticulous financial data reviewer. You judge whether an extraction followed its rules and respond with a single JSON object and nothing else.`

const extractionRules = `**Instructions:**

1. **Metadata (based on the filename and headers):**
   - "statement_type": EXACTLY ONE of ["Balance Sheet", "Income Statement", "Cash Flow Statement", "Comprehensive Income Statement"].
     Hints: 'financial_position' -> "Balance Sheet", 'income_statement' -> "Income Statement", 'comprehensive_income' -> "Comprehensive Income Statement", 'cash_flow' -> "Cash Flow Statement".
   - "period": EXACTLY ONE of ["Q1", "Q2", "Q3", "FY"].
     Hints: 'three_months' -> "Q1", 'six_months' -> "Q2", 'nine_months' -> "Q3". Audited statements or 'year_ended' -> "FY".
   - "group_or_company": EXACTLY ONE of ["group", "company"].
     Hints: 'group' or 'consolidated' near the word 'statement' -> "group". An explicit 'company statement' -> "company". Default to "group" when ambiguous.
   - "report_date": the reporting date in YYYY-MM-DD format, taken from the filename when present.

2. **Values (based on the statement content):**
   - Identify the primary reporting date implied by the filename and focus ONLY on columns for periods ending on or close to it.
   - IGNORE columns representing prior years or comparative periods.
   - Report each value as a NUMBER. Preserve sign: parentheses mean negative. A dash where a value should be means 0, never null.
   - Grouped headings (Current Assets, Current Liabilities, Shareholders' Equity and the like) carry a dangling total row. Include the heading total itself, not only the rows beneath it.
   - It is exceedingly important that no requested field present in the statement is missed. Fields genuinely absent from the statement are simply omitted. Imaginary values are unacceptable.

3. **Response shape:** return a JSON object with exactly these top-level keys:
   - "metadata": the object described above
   - "values": an object mapping field names to numbers (or a YYYY-MM-DD string for date fields)
   - "confidence": your overall confidence in the extraction, 0.0 to 1.0
   - "rationale": one short sentence on how the values were located`

// BuildExtractionPrompt assembles the user prompt for one attempt. Feedback
// from a failed evaluation, when present, is embedded so the retry can
// correct the specific errors.
func BuildExtractionPrompt(doc models.StatementDocument, segmentText string, def *schema.Definition, previousOutput string, feedback *Evaluation) string {
	var b strings.Builder

	if previousOutput != "" && feedback != nil {
		b.WriteString("---\n**RETRY ATTEMPT:** Your previous attempt failed evaluation. Review the feedback and the previous output, then generate a corrected response adhering strictly to *all* original rules.\n---\n\n")
	}

	fmt.Fprintf(&b, "**Filename:**\n`%s`\n\n", doc.SourceRef)
	fmt.Fprintf(&b, "**Statement Content:**\n```\n%s\n```\n\n", segmentText)
	fmt.Fprintf(&b, "**Fields to extract (use these exact names in \"values\"):**\n%s\n\n", fieldCatalog(def))
	b.WriteString(extractionRules)

	if previousOutput != "" && feedback != nil {
		fmt.Fprintf(&b, "\n\n**Previous Incorrect Output:**\n```json\n%s\n```\n\n", previousOutput)
		fmt.Fprintf(&b, "**Evaluation Feedback (Reason for Failure):**\n%s\n", feedback.Reasoning)
		fmt.Fprintf(&b, "Specific Issues Flagged:\n- Missing Periods: %t\n- Missing Grouped Totals: %t\n\n", feedback.MissingPeriods, feedback.MissingGroupedTotals)
		b.WriteString("**Corrective Action Required:** Regenerate the *entire* output, fixing the errors mentioned in the feedback while ensuring all other rules are still followed completely.")
	}

	return b.String()
}

// BuildCorrectivePrompt asks the model to re-emit its last answer as valid
// JSON after an unparseable response.
func BuildCorrectivePrompt(original string, badResponse string) string {
	var b strings.Builder
	b.WriteString("Your previous response could not be parsed as JSON. Re-emit the answer to the request below as ONE valid JSON object with the keys \"metadata\", \"values\", \"confidence\" and \"rationale\". No prose, no code fences.\n\n")
	fmt.Fprintf(&b, "**Unparseable response:**\n%s\n\n", truncate(badResponse, 2000))
	fmt.Fprintf(&b, "**Original request:**\n%s", original)
	return b.String()
}

// BuildEvaluationPrompt asks a second model call to judge an extraction.
func BuildEvaluationPrompt(doc models.StatementDocument, segmentText string, extractionJSON string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Filename:** `%s`\n\n", doc.SourceRef)
	fmt.Fprintf(&b, "**Statement Content:**\n```\n%s\n```\n\n", truncate(segmentText, 12000))
	fmt.Fprintf(&b, "**Extraction Under Review:**\n```json\n%s\n```\n\n", extractionJSON)
	b.WriteString(`**Review Rules:**
1. Check that every value in the extraction appears in the statement content. Invented values are an automatic FAIL.
2. Check period completeness: does the extraction cover the periods the relevant columns carry? Mark "missing_periods_found" true if any were missed.
3. Check grouped totals: grouping headings (Current Assets, Total Liabilities and similar) carry dangling total rows. Mark "missing_grouped_totals_found" true if their totals were missed.
4. Check metadata plausibility against the filename.
5. Overall judgment: "PASS" only if all rules are met accurately, "FAIL" otherwise, with a brief "evaluation_reasoning".

Return a JSON object with exactly the keys "evaluation_judgment" ("PASS" or "FAIL"), "evaluation_reasoning", "missing_periods_found" (boolean) and "missing_grouped_totals_found" (boolean).`)
	return b.String()
}

func fieldCatalog(def *schema.Definition) string {
	keys := def.Keys()
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		f, _ := def.Field(k)
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "- %s (%s, %s, %s)\n", k, f.Type, f.Group, req)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... [truncated]"
}
