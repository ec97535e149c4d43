// Lucon is a usage-control policy decision point for message flows between
// services.
//
// Policies are LUCON theories: Horn clauses naming rules, the services they
// target, the labels they require and the decision or obligation they carry.
//
// Usage:
//
//	# Serve decisions over HTTP
//	lucon serve --config config.yaml
//
//	# Check a policy file
//	lucon lint policy.pl
//
//	# Ask for a decision
//	lucon decide --policy policy.pl --source seda:in --dest hdfs://cluster --label private
//
//	# Label effects of a service
//	lucon transform --policy policy.pl --node paho:tcp://broker:1883
//
//	# Diagnostic query
//	lucon query --policy policy.pl --all 'rule(X)'
package main

func main() {
	Execute()
}
