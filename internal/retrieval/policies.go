// File: internal/retrieval/policies.go
package retrieval

// samplePolicies are the built-in policy documents used when no policy
// directory is present on disk.
var samplePolicies = map[string]string{
	"refund_policy.txt": `
REFUND POLICY

Section 1: General Refund Terms
- Refunds are processed within 5-7 business days of approval
- Full refunds are issued for defective products
- Partial refunds may apply for used or opened items

Section 2: Delivery Delays
- Orders delayed beyond 48 hours from expected delivery may qualify for refund
- Delays due to weather or natural disasters are excluded
- Customer must request refund within 10 days of expected delivery

Section 3: Cancellation
- Orders can be cancelled within 24 hours of placement for full refund
- After 24 hours, cancellation fees may apply based on order status
`,

	"delivery_delay_policy.txt": `
DELIVERY DELAY POLICY

Section 1: Expected Delivery Times
- Standard delivery: 5-7 business days
- Express delivery: 2-3 business days
- Same-day delivery: Orders placed before 12 PM

Section 2: Delay Handling
- Delays of 1-2 days: Customer service notification
- Delays beyond 48 hours: Automatic refund eligibility
- Delays beyond 7 days: Full refund + 10% credit

Section 3: Compensation
- Minor delays (1-2 days): Free shipping on next order
- Major delays (3+ days): 5% refund or store credit
- Severe delays (7+ days): Full refund + additional compensation
`,

	"return_policy.txt": `
RETURN POLICY

Section 1: Return Window
- Electronics: 14 days from delivery
- Clothing and accessories: 30 days from delivery
- Perishables: No returns accepted

Section 2: Condition Requirements
- Items must be unused and in original packaging
- All accessories and documentation must be included
- Damaged items may be returned regardless of usage

Section 3: Return Process
- Initiate return through customer portal or support
- Return shipping label provided for eligible returns
- Inspection completed within 3 business days of receipt
`,

	"charges_and_fees_policy.txt": `
CHARGES AND FEES POLICY

Section 1: Order Charges
- Product price: As listed at time of purchase
- Shipping charges: Based on weight and distance
- Tax: Calculated based on delivery address

Section 2: Additional Fees
- Express delivery surcharge: $10-15
- Remote area delivery: Additional $5
- COD fee: $2 per order

Section 3: Hidden Charges
- Platform fee: Included in product price
- Processing fee: Only for installment payments
- No hidden fees - all charges displayed at checkout
`,
}
