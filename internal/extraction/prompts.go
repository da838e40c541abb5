package extraction

// textPrompt instructs the model to structure credit-report text. The schema
// mirrors report.RawPayload; the normalizer tolerates loose types so the
// prompt stays short.
const textPrompt = `You are a credit report parser. Extract structured data from the credit report text provided by the user.

Respond ONLY with a JSON object of this shape, no additional text:

{
  "bureaus": {
    "experian":   { ... } or null,
    "equifax":    { ... } or null,
    "transunion": { ... } or null
  }
}

Each bureau object has:
- "available": true
- "score": integer credit score, or null if not shown
- "utilization": overall revolving utilization percent as an integer, or null
- "inquiries": count of hard inquiries
- "negative_accounts": count of derogatory/collection accounts
- "late_payment_events": count of late payment events
- "names": array of consumer names as printed
- "addresses": array of addresses as printed
- "employers": array of employers as printed
- "report_date": report date as YYYY-MM-DD if shown, else ""
- "tradelines": array of accounts, each with "creditor", "category" (one of
  revolving, installment, auto, mortgage, other), "status", "balance" (whole
  dollars), "limit" (whole dollars or null), "opened" (YYYY-MM or ""),
  "closed" (YYYY-MM or ""), "authorized_user" (boolean)

Only include bureaus whose data actually appears. Use null for a bureau with no data.`

// visionPrompt is the instruction for direct PDF parsing.
const visionPrompt = `You are a credit report parser. The attached document is a consumer credit report PDF. Read it and extract structured data.

Respond ONLY with a JSON object:
{"bureaus": {"experian": {...} or null, "equifax": {...} or null, "transunion": {...} or null}}
with the per-bureau fields: available, score, utilization, inquiries, negative_accounts, late_payment_events, names, addresses, employers, report_date, tradelines — same meanings and units as for text input. No additional text.`
